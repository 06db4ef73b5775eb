// Package database provides the PostgreSQL connection pool used for activity
// history persistence. The pool is optional; a client with persistence
// disabled never touches this package.
package database
