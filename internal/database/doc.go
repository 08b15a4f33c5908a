// Package database provides the PostgreSQL connection pool used for
// order book history persistence.
package database
