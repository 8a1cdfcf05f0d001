package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingDependency  = fmt.Errorf("missing external dependency")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Retrieval errors
	ErrTransientNetwork = fmt.Errorf("transient network failure")
	ErrProviderRejected = fmt.Errorf("provider rejected request")
	ErrNotFound         = fmt.Errorf("not found")
	ErrLocalIO          = fmt.Errorf("local I/O failure")
	ErrNormalization    = fmt.Errorf("normalization failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ErrorKind classifies a retrieval error.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransientNetwork
	KindProviderRejected
	KindNotFound
	KindLocalIO
	KindNormalization
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindProviderRejected:
		return "provider_rejected"
	case KindNotFound:
		return "not_found"
	case KindLocalIO:
		return "local_io"
	case KindNormalization:
		return "normalization"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed. Only local I/O is fatal.
func (k ErrorKind) Retryable() bool {
	return k != KindLocalIO
}

// ClassifyError maps err onto the retrieval taxonomy.
func ClassifyError(err error) ErrorKind {
	var netErr net.Error
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrLocalIO):
		return KindLocalIO
	case errors.Is(err, ErrNormalization):
		return KindNormalization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrProviderRejected):
		return KindProviderRejected
	case errors.Is(err, ErrTransientNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return KindTransientNetwork
	default:
		return KindUnknown
	}
}

// StatusError maps an HTTP status code onto the retrieval taxonomy.
func StatusError(code int) error {
	switch {
	case code == 404 || code == 410:
		return fmt.Errorf("%w: status %d", ErrNotFound, code)
	case code == 403 || code == 429 || code == 401:
		return fmt.Errorf("%w: status %d", ErrProviderRejected, code)
	default:
		return fmt.Errorf("%w: status %d", ErrTransientNetwork, code)
	}
}
