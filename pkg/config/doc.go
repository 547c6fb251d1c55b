// Package config provides configuration management for the Aegis policy
// engine.
//
// Configuration is loaded from YAML files with optional environment variable
// overrides, validated, and handed to the components as typed sections.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("aegis.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("aegis.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AEGIS_SECTION_FIELD.
// For example:
//
//   - AEGIS_ENGINE_RULE_TIMEOUT overrides engine.rule_timeout
//   - AEGIS_RULES_FILE_PATH overrides rules.file_path
//   - AEGIS_AUDIT_SQLITE_PATH overrides audit.sqlite_path
//
// Environment variables always take precedence over file-based values.
//
// # Configuration Precedence
//
// Values are applied in order (later overrides earlier):
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
package config
