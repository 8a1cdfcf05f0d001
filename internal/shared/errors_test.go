package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyError(t *testing.T) {
	tc := []struct {
		name      string
		err       error
		want      ErrorKind
		retryable bool
	}{
		{name: "local io", err: fmt.Errorf("%w: disk full", ErrLocalIO), want: KindLocalIO},
		{name: "normalization", err: fmt.Errorf("%w: ffmpeg exited", ErrNormalization), want: KindNormalization, retryable: true},
		{name: "not found", err: StatusError(404), want: KindNotFound, retryable: true},
		{name: "rejected", err: StatusError(429), want: KindProviderRejected, retryable: true},
		{name: "server error", err: StatusError(502), want: KindTransientNetwork, retryable: true},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTransientNetwork, retryable: true},
		{name: "net error", err: &net.OpError{Op: "dial", Err: timeoutErr{}}, want: KindTransientNetwork, retryable: true},
		{name: "unknown", err: errors.New("boom"), want: KindUnknown, retryable: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
			if got.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got.Retryable(), tt.retryable)
			}
		})
	}
}
