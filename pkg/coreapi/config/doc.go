// Package config provides map-backed configuration with type-safe accessors.
//
// Config wraps a map[string]any, typically loaded from a YAML or JSON file,
// and exposes typed getters that fall back to a caller-supplied default when
// a key is missing or holds a value of the wrong type. Nothing panics on bad
// input; the defaults make partial configuration files safe.
//
// # Loading
//
//	cfg, err := config.FromFile("coreapi.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	validate := cfg.Bool("validate_signatures", false)
//	journal := cfg.String("journal_path", "")
//
// # Nested sections
//
// Sub returns the Config rooted at a nested map key, so hub settings can live
// under their own section:
//
//	hub:
//	  validate_signatures: true
//	  journal_path: ":memory:"
//
//	hubCfg := cfg.Sub("hub")
//	hubCfg.Bool("validate_signatures", false) // true
package config
