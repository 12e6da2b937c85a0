// Package auth provides credential hashing and JWT token handling for
// the HTTP API. The service runs with a single configured admin user,
// so there is no user store: the login handler verifies the configured
// Argon2id hash and mints short-lived HS256 access tokens.
package auth
