// Package memory provides in-process implementations of the store
// interfaces. They back the test suites and local runs without Postgres
// or Redis, and mirror the transactional behaviour of the real stores.
package memory
