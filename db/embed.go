// Package db embeds the database schema shared by the application's
// migration runner and the postgres container init hook.
package db

import _ "embed"

// Schema holds the idempotent DDL for the assets and rate_points tables.
//
//go:embed migrations/001_schema.sql
var Schema string
