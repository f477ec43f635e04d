// Package config loads engine settings for the nebulaframe CLI and plan runner.
//
// # Loading
//
// Load reads an optional YAML file through viper and applies environment
// overrides. Every key can be set with the NEBULAFRAME_ prefix and dots
// replaced by underscores:
//
//	NEBULAFRAME_LOG_LEVEL=debug
//	NEBULAFRAME_ARROW_MODE=strict
//
// # Plan files
//
// LoadYAML decodes arbitrary YAML documents (plan files) with ${VAR_NAME}
// substitution performed before parsing:
//
//	inputs:
//	  orders: ${DATA_DIR}/orders.json
//
// Save writes any value back out as YAML.
package config
