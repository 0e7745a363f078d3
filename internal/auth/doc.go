// Package auth secures the management API.
//
// The model is deliberately small for an edge gateway: one admin account
// from configuration, Argon2id password hashing, and short-lived HS256
// access tokens validated by signature alone. There is no session store to
// replicate and nothing to clean up.
package auth
