package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("tavily search: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_NilAndRegular(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
	if IsTransient(errors.New("invalid api key")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_Network(t *testing.T) {
	cases := []error{
		fmt.Errorf("write tcp: %w", syscall.ECONNRESET),
		fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED),
		&net.DNSError{IsTimeout: true, Err: "timeout"},
		errors.New("read tcp 10.0.0.1: i/o timeout"),
		errors.New("Post https://api.tavily.com/search: EOF: connection reset by peer"),
	}
	for _, err := range cases {
		if !IsTransient(err) {
			t.Errorf("expected %v to be transient", err)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("status %d should be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("status %d should not be transient", code)
		}
	}
}

func TestStatusError(t *testing.T) {
	err := StatusError("tavily", 503, []byte(" overloaded \n"))
	if !IsTransient(err) {
		t.Error("503 should produce a transient error")
	}
	if !strings.Contains(err.Error(), "tavily: unexpected status 503: overloaded") {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = StatusError("tavily", 401, []byte("bad key"))
	if IsTransient(err) {
		t.Error("401 should not be transient")
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 502)
	if !errors.Is(te, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
	if te.Error() != "root cause" {
		t.Errorf("unexpected message %q", te.Error())
	}
}
