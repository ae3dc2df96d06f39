// Package config provides configuration management for cmsfreq.
//
// Configuration flows from three sources, in increasing precedence:
// built-in defaults, the .cmsfreq YAML file, and CLI flags. The Config
// struct is populated once after flag parsing and passed through the
// application via dependency injection rather than global state.
package config
