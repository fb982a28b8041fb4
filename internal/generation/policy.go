package generation

// IsPermanent reports whether a failure of this kind can never succeed on
// retry with the same input. Such videos are marked failed.
func IsPermanent(kind ErrorKind) bool {
	switch kind {
	case KindAuthentication,
		KindPermission,
		KindContentFilteredRecitation,
		KindContentFilteredSafety,
		KindInvalidRequest:
		return true
	default:
		return false
	}
}

// RequiresChunking reports whether the full-transcript request was too large
// or too slow and should be split into one call per artifact kind.
func RequiresChunking(kind ErrorKind) bool {
	switch kind {
	case KindTokenLimitInput, KindTokenLimitOutput, KindTimeout:
		return true
	default:
		return false
	}
}

// IsTransient reports whether the original, non-chunked request should
// simply be retried. Unknown kinds are transient.
func IsTransient(kind ErrorKind) bool {
	return !IsPermanent(kind) && !RequiresChunking(kind)
}
