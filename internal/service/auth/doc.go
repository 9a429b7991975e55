// Package auth provides bcrypt password hashing and the pool operations that
// run it on worker goroutines.
package auth
