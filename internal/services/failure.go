package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/passtheaux/internal/shared"
)

// Kind classifies a [Failure] so callers can decide whether to degrade or halt.
type Kind int

const (
	KindCredential  Kind = iota + 1 // missing, rejected or expired credential
	KindStatus                      // upstream returned a non-success status
	KindTransport                   // request never completed
	KindMalformed                   // response could not be decoded or lacked a required field
	KindNotFound                    // upstream reported no match
	KindRateLimited                 // still throttled after retries
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindStatus:
		return "status"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Failure is the error returned by every external service client.
type Failure struct {
	Kind   Kind
	Op     string // e.g. "spotify.search"
	Status int    // HTTP status, zero when no response was received
	Err    error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Op, f.Kind)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and the shared sentinel for the failure's kind.
func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	if s := f.sentinel(); s != nil {
		errs = append(errs, s)
	}
	return errs
}

func (f *Failure) sentinel() error {
	switch f.Kind {
	case KindCredential:
		return shared.ErrNotAuthenticated
	case KindStatus:
		return shared.ErrAPIRequest
	case KindTransport:
		return shared.ErrServiceUnavailable
	case KindMalformed:
		return shared.ErrMalformedResponse
	case KindRateLimited:
		return shared.ErrRateLimited
	default:
		return nil
	}
}

// IsKind reports whether err is, or wraps, a [Failure] of kind k.
func IsKind(err error, k Kind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == k
	}
	return false
}

// KindOf returns the kind of the first [Failure] in err's chain, or zero.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

func credentialFailure(op string, err error) *Failure {
	return &Failure{Kind: KindCredential, Op: op, Err: err}
}

func malformed(op string, format string, args ...any) *Failure {
	return &Failure{Kind: KindMalformed, Op: op, Err: fmt.Errorf(format, args...)}
}

// statusFailure classifies a non-success HTTP status.
func statusFailure(op string, status int, detail string) *Failure {
	kind := KindStatus
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindCredential
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	}

	var err error
	if detail != "" {
		err = errors.New(detail)
	}
	return &Failure{Kind: kind, Op: op, Status: status, Err: err}
}
