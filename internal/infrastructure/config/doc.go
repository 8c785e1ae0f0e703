// Package config handles loading and validating loxgate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//   - Normalisation of loosely-shaped routing and output entries
//
// A routing entry whose "outputs" value is a bare string is treated as a
// single-element list; an entry that is not a mapping routes nowhere. An
// output entry that is not a mapping is treated as a disabled sink, and
// "enabled" defaults to true when omitted. Controller-side config files
// are hand-edited, so the loader is deliberately forgiving here.
//
// Security Considerations:
//   - Sensitive values (broker passwords, bridge usernames) should be set
//     via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Inputs.UDP.Ports)
package config
