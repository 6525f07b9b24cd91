// Package middleware groups the Fiber middleware of the HTTP API.
//
//   - auth: rejects requests without the configured X-API-Key header.
//   - rayid: tags every request with a ray id, exposed in the X-Ray-ID
//     response header and in fiber locals for logger.WithRayID.
//
// rayid is registered first so rejected requests are traced too.
package middleware
