// Package store defines the persistence interfaces for video jobs and
// their generated learning materials. Implementations live under
// internal/platform (postgres for production, memory for tests and local
// runs) so the pipeline never depends on a specific database.
package store
