// Package config provides configuration management for micromes.
//
// # Application configuration
//
// Configuration is layered, lowest precedence first:
//
//	1. Default() values
//	2. A YAML file (explicit path, $MES_CONFIG, config.yaml or configs/config.yaml)
//	3. MES_* environment variables, e.g. MES_SERVER_PORT or MES_PATHS_INTAKE_DIR
//
// Relative paths are then resolved: data and logs directories against the
// base directory, intake directory and database file against the data
// directory.
//
// # Parameter registry
//
// The registry maps measurement parameters to sheet coordinates:
//
//	parameters:
//	  "Y Direction Measurement on Front Rail Z3": [1, 4, 5, 0, 0.075, "03232-0010-000"]
//
// The tuple is [sn_column, value_column, start_row, lower_limit,
// upper_limit, part_number]. A Registry is constructed explicitly with
// LoadRegistry or ParseRegistry and passed to the components that need it.
package config
