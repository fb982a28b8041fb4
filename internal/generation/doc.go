// Package generation sits between the materials pipeline and external
// AI/LLM services. It defines the Generator and Embedder ports, the closed
// taxonomy of failure kinds produced by Classify, the retry policy over
// those kinds, and the ChunkedGenerator that requests one artifact kind per
// call so that a failure in one kind never discards the others.
package generation
