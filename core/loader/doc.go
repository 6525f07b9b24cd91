// Package loader registers HTTP features on the Fiber application.
//
// Each feature implements Feature:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// Manager.LoadAll loads the enabled ones in registration order.
package loader
