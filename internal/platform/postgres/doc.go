// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package.
// It handles the details of database connections, query execution, schema
// migrations and data mapping between domain entities and database records.
//
// Videos are stored in a single table that also serves as the durable task
// record. Each stored artifact kind has its own table with one row per item.
package postgres
