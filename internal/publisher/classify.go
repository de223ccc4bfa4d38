package publisher

import (
	"errors"
	"fmt"

	"github.com/stwalsh4118/propsearch/internal/reconcile"
	"github.com/stwalsh4118/propsearch/internal/search"
)

// ErrorKind is the user-facing failure category.
type ErrorKind string

const (
	KindBuild             ErrorKind = "build"
	KindTransport         ErrorKind = "transport"
	KindHTTPStatus        ErrorKind = "http_status"
	KindDecode            ErrorKind = "decode"
	KindNoRecognizedShape ErrorKind = "no_recognized_shape"
)

const retryHint = "Please try again."

// Classify maps a pipeline error to its ErrorKind. Errors from outside the
// pipeline count as transport failures.
func Classify(err error) ErrorKind {
	var buildErr *search.BuildError
	if errors.As(err, &buildErr) {
		return KindBuild
	}

	var execErr *search.ExecutorError
	if errors.As(err, &execErr) {
		switch execErr.Kind {
		case search.KindHTTPStatus:
			return KindHTTPStatus
		case search.KindDecode:
			return KindDecode
		default:
			return KindTransport
		}
	}

	if errors.Is(err, reconcile.ErrNoRecognizedShape) {
		return KindNoRecognizedShape
	}
	return KindTransport
}

// Message returns the text shown to the user for a failure of kind.
func Message(kind ErrorKind, err error) string {
	switch kind {
	case KindBuild:
		if errors.Is(err, search.ErrAPIDisabled) {
			return "Live search is turned off for this request. " + retryHint
		}
		return fmt.Sprintf("Your search could not be sent (%v). Check the search criteria. %s", err, retryHint)
	case KindHTTPStatus:
		var execErr *search.ExecutorError
		if errors.As(err, &execErr) {
			return fmt.Sprintf("The property service returned an error (status %d). %s", execErr.StatusCode, retryHint)
		}
		return "The property service returned an error. " + retryHint
	case KindDecode:
		return "The property service sent a response that could not be read. " + retryHint
	case KindNoRecognizedShape:
		return "No properties could be found in the search response. " + retryHint
	default:
		return "Failed to fetch properties. Check your connection. " + retryHint
	}
}
