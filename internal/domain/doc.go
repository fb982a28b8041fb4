// Package domain contains the core entities of the materials pipeline: the
// video job with its processing state machine, the six learning-material
// artifact kinds, and the materials bundle that carries at most one artifact
// per kind. It has no knowledge of storage or generation providers.
package domain
