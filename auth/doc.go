// Package auth authenticates API callers and checks their permissions.
//
// Three credential types are accepted, tried in this order by a
// CompositeAuthenticator:
//
//   - HTTP Basic against a user store with bcrypt password hashes
//   - X-API-Key against a store of SHA-256 key hashes
//   - a signed session token (HS256 JWT) in a Bearer header or the
//     "session" cookie
//
// Middleware answers 401 when no credential authenticates and 403 when the
// identity lacks the required permission. It never sets WWW-Authenticate,
// so browsers do not raise a Basic auth dialog.
package auth
