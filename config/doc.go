// Package config loads the service configuration from the environment.
//
// Every value may reference a secret, either as ${VAR} or as
// secretref:<provider>:<ref>, and is resolved before it is parsed:
//
//	resolver, _ := config.NewResolver(os.LookupEnv)
//	cfg, err := config.Load(ctx, os.LookupEnv, resolver)
//
// Durations accept Go duration strings ("90s", "1m30s") or a bare number
// of seconds.
package config
