// Package database manages the SQLite connection used for run history.
//
// It provides connection lifecycle (WAL mode, busy timeout, restrictive
// file permissions), embedded SQL migrations applied at startup, and a
// health check used by the operator status endpoint.
package database
