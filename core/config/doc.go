// Package config provides type-safe environment variable loading with
// per-type caching. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads a .env file on first use and parses environment variables
// into struct fields via the caarlos0/env library.
//
// Basic usage:
//
//	import (
//		"github.com/dmitrymomot/botkit/core/config"
//		"github.com/dmitrymomot/botkit/core/gateway"
//	)
//
//	func main() {
//		var cfg gateway.Config
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure, useful at startup:
//		config.MustLoad(&cfg)
//	}
//
// # Caching behavior
//
// Each configuration type is loaded only once per process:
//
//	var a gateway.Config
//	config.MustLoad(&a) // parses the environment
//
//	var b gateway.Config
//	config.MustLoad(&b) // cached, a == b
//
// Different types are cached independently, so the gateway, REST and Redis
// configs each get their own entry.
package config
