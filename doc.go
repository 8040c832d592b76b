// Package imageshare provides an image sharing service.
//
// Features:
// - Submit images by remote URL, downloaded and stored locally
// - View counting and a most-viewed ranking backed by Redis
// - Like / unlike with an activity log
// - Paginated listing with a fragment mode for incremental loading
// - User authentication and authorization
//
// Example usage:
//   go run main.go
//
// Configuration:
//   See config/config.json for server settings,
//   secrets can be overridden via a .env file
//
// Storage:
//   Image metadata lives in PostgreSQL (see internal/database/migrations),
//   counters live in Redis, files on the local filesystem
package main
