// Package config loads the storesync configuration with Viper.
//
// Sources, lowest precedence first:
//   - `default` struct tags of every scalar setting;
//   - storesync.yaml (or any format Viper reads) in the given directory;
//   - the .env file of that directory, loaded into the environment;
//   - environment variables, with dots replaced by underscores
//     (SERVER_PORT -> server.port, SYNC_COUNT -> sync.count).
//
// Record types and stores are lists and can only be declared in the file:
//
//	sync:
//	  count: 1000
//	  types:
//	    - name: user
//	      fields:
//	        - {name: id, kind: string, identifier: true}
//	        - {name: age, kind: int, default: "0"}
//	  stores:
//	    - {name: cache, kind: memory}
//	    - {name: db, kind: sql, options: {table: users}}
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
package config
