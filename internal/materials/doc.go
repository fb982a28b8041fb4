// Package materials persists generated learning materials for a video.
//
// Each stored kind is replaced wholesale: the previous items are deleted and
// the new ones inserted inside a single transaction, so a rewrite is
// idempotent and a failure leaves the earlier set in place. Metadata is not
// a collection; it is written onto the video record, and only when the
// caller says it was actually regenerated.
package materials
