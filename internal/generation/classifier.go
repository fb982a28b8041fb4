package generation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure kinds a generation error is
// classified into. Only the kind drives retry decisions.
type ErrorKind string

// Failure kinds, in classification priority order.
const (
	KindAuthentication            ErrorKind = "authentication"
	KindPermission                ErrorKind = "permission"
	KindRateLimit                 ErrorKind = "rate_limit"
	KindTokenLimitInput           ErrorKind = "token_limit_input"
	KindTokenLimitOutput          ErrorKind = "token_limit_output"
	KindContentFilteredRecitation ErrorKind = "content_filtered_recitation"
	KindContentFilteredSafety     ErrorKind = "content_filtered_safety"
	KindTimeout                   ErrorKind = "timeout"
	KindUnavailable               ErrorKind = "unavailable"
	KindInvalidRequest            ErrorKind = "invalid_request"
	KindServiceError              ErrorKind = "service_error"

	// KindUnknown stands in for a missing or unrecognised persisted error
	// type. It is never produced by Classify.
	KindUnknown ErrorKind = "unknown"
)

// AllErrorKinds lists every kind Classify can produce.
var AllErrorKinds = []ErrorKind{
	KindAuthentication,
	KindPermission,
	KindRateLimit,
	KindTokenLimitInput,
	KindTokenLimitOutput,
	KindContentFilteredRecitation,
	KindContentFilteredSafety,
	KindTimeout,
	KindUnavailable,
	KindInvalidRequest,
	KindServiceError,
}

func (k ErrorKind) String() string {
	return string(k)
}

type rule struct {
	kind  ErrorKind
	match func(msg string) bool
}

func anyOf(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

func allOf(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if !strings.Contains(msg, s) {
				return false
			}
		}
		return true
	}
}

func either(fns ...func(string) bool) func(string) bool {
	return func(msg string) bool {
		for _, fn := range fns {
			if fn(msg) {
				return true
			}
		}
		return false
	}
}

// rules are evaluated in order; the first match wins. A message containing
// both "timeout" and "503" is a timeout because timeout is tested first.
var rules = []rule{
	{KindAuthentication, anyOf("auth key", "unauthorized", "unauthenticated")},
	{KindPermission, anyOf("permission", "forbidden")},
	{KindRateLimit, anyOf("rate limit", "429", "resource_exhausted", "quota")},
	{KindTokenLimitInput, either(
		allOf("context", "length"),
		anyOf("context_length_exceeded", "maximum context length"),
	)},
	{KindTokenLimitOutput, allOf("output", "limit")},
	{KindContentFilteredRecitation, anyOf("recitation")},
	{KindContentFilteredSafety, func(msg string) bool {
		return strings.Contains(msg, "safety") && anyOf("block", "filter")(msg)
	}},
	{KindTimeout, anyOf("timeout", "deadline", "504")},
	{KindUnavailable, anyOf("503", "unavailable", "overload", "capacity")},
	{KindInvalidRequest, either(
		func(msg string) bool {
			return strings.Contains(msg, "invalid") && anyOf("argument", "request")(msg)
		},
		anyOf("malformed", "failed_precondition"),
	)},
}

// Classify maps a raw error message to exactly one ErrorKind. Matching is
// case-insensitive; anything unmatched is a service_error.
func Classify(message string) ErrorKind {
	msg := strings.ToLower(message)
	for _, r := range rules {
		if r.match(msg) {
			return r.kind
		}
	}
	return KindServiceError
}

// legacyKinds maps error codes written by older ingestion flows.
var legacyKinds = map[string]ErrorKind{
	"LLM_AUTH":            KindAuthentication,
	"LLM_PERMISSION":      KindPermission,
	"LLM_RATE_LIMIT":      KindRateLimit,
	"LLM_TOKEN_LIMIT":     KindTokenLimitInput,
	"LLM_OUTPUT_LIMIT":    KindTokenLimitOutput,
	"LLM_RECITATION":      KindContentFilteredRecitation,
	"LLM_SAFETY":          KindContentFilteredSafety,
	"LLM_CONTENT_FILTER":  KindContentFilteredSafety,
	"LLM_TIMEOUT":         KindTimeout,
	"LLM_UNAVAILABLE":     KindUnavailable,
	"LLM_INVALID_REQUEST": KindInvalidRequest,
	"LLM_ERROR":           KindServiceError,
}

// ParseErrorKind converts a persisted error type into an ErrorKind. Kind
// names are matched case-insensitively and legacy LLM_* codes are mapped.
// Empty or unrecognised values yield KindUnknown.
func ParseErrorKind(s string) ErrorKind {
	s = strings.TrimSpace(s)
	if s == "" {
		return KindUnknown
	}
	if k, ok := legacyKinds[strings.ToUpper(s)]; ok {
		return k
	}
	lower := strings.ToLower(s)
	for _, k := range AllErrorKinds {
		if string(k) == lower {
			return k
		}
	}
	return KindUnknown
}

// ClassifiedError carries the classification of a generation failure. Kind
// is used for control flow; Message is kept for diagnostics only.
type ClassifiedError struct {
	Kind             ErrorKind
	Retryable        bool
	RequiresChunking bool
	Message          string
	Err              error
}

// NewClassifiedError builds a ClassifiedError for an explicit kind.
func NewClassifiedError(kind ErrorKind, err error) *ClassifiedError {
	msg := string(kind)
	if err != nil {
		msg = err.Error()
	}
	return &ClassifiedError{
		Kind:             kind,
		Retryable:        !IsPermanent(kind),
		RequiresChunking: RequiresChunking(kind),
		Message:          msg,
		Err:              err,
	}
}

// ClassifyError classifies err at the boundary where it was caught. An
// error that already carries a classification is returned unchanged.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	return NewClassifiedError(Classify(err.Error()), err)
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the original error.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}
