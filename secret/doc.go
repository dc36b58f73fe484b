// Package secret resolves configuration values that refer to secrets.
//
// A value is first expanded with ExpandEnvStrict, which substitutes only the
// braced ${VAR} form so that literal dollar signs (bcrypt hashes such as
// $2a$10$...) pass through untouched. The result may then name a secret:
//
//   - Full value:  secretref:file:/run/secrets/upstream_api_key
//   - Inline use:  Bearer secretref:env:UPSTREAM_TOKEN
//
// Two providers ship with the package: "env" reads another environment
// variable and "file" reads a mounted secret file. Both are registered in
// DefaultRegistry.
package secret
