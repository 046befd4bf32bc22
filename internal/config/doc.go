// Package config provides configuration loading, merging, and path management for Relay.
//
// # Configuration Loading
//
// Load merges configuration from these sources, each later one overriding the
// earlier ones:
//
//  1. A .env file in the given directory, loaded into the process environment
//     (variables that are already set keep their values)
//  2. Global config: relay.json, then relay.jsonc, in the config directory
//     returned by GetPaths (~/.config/relay or $XDG_CONFIG_HOME/relay)
//  3. Project config: .relay/relay.json, then .relay/relay.jsonc, in the given
//     directory
//  4. Environment variables
//
// A missing or unparsable file is skipped. Only the given directory is searched
// for project config; parent directories are not. There is no ~/.relay global
// directory and no RELAY_CONFIG or RELAY_CONFIG_CONTENT source.
//
// # Supported Formats
//
// Both files are parsed as JSON after // and /* */ comments are removed with
// regular expressions:
//   - relay.json - Standard JSON configuration
//   - relay.jsonc - JSON with comments
//
// String values are used as written: placeholders such as {env:VAR} or
// {file:path} are not expanded.
//
// # Configuration Merging
//
// Each loaded file is merged into the result field by field:
//   - model and small_model are overwritten when the file sets them
//   - provider, agent, mcp and command entries are combined by key; an entry
//     with the same key replaces the earlier one as a whole
//   - permission, lsp, watcher and experimental blocks replace earlier ones
//   - other fields ($schema, username, theme, share, tools, instructions,
//     promptVariables, formatter) are not carried into the result
//
// # Path Management
//
// The package provides XDG Base Directory Specification compliant path management
// through the Paths type:
//   - Data: ~/.local/share/relay (XDG_DATA_HOME)
//   - Config: ~/.config/relay (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/relay (XDG_CACHE_HOME)
//   - State: ~/.local/state/relay (XDG_STATE_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
//
// # Environment Variable Overrides
//
// These environment variables override the loaded configuration:
//   - RELAY_MODEL - Override the default model
//   - RELAY_SMALL_MODEL - Override the small model
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, AWS_ACCESS_KEY_ID -
//     set the apiKey of the anthropic, openai, google and bedrock providers
//     when the configuration leaves it empty
//
// # TypeScript Compatibility
//
// Provider entries accept the TypeScript-style nested Options object alongside
// the flat apiKey/baseURL fields.
//
// # Usage Example
//
//	// Load configuration from the current directory
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Get standard paths
//	paths := config.GetPaths()
//	err = paths.EnsurePaths() // Create directories if they don't exist
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save configuration
//	err = config.Save(cfg, config.GlobalConfigPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config