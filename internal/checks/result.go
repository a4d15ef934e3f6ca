package checks

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingStatus is returned when a Result is built without a valid status.
var ErrMissingStatus = errors.New("checks: result status is required")

// Status is the three-valued verdict of a check. The zero value is not a
// valid status; it stands for "no result".
type Status int

const (
	StatusOK Status = iota + 1
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "NONE"
	}
}

// Valid reports whether s is one of OK, WARN or FAIL.
func (s Status) Valid() bool {
	return s >= StatusOK && s <= StatusFail
}

// ParseStatus is the inverse of String for valid statuses.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "OK":
		return StatusOK, nil
	case "WARN":
		return StatusWarn, nil
	case "FAIL":
		return StatusFail, nil
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrMissingStatus, v)
}

// MarshalText encodes the zero status as "NONE" so that "no result" can be
// reported in diffs and API payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	if string(b) == "NONE" {
		*s = 0
		return nil
	}
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Result is the immutable outcome of evaluating one check against one header.
// The zero Result carries no status and is what lookups return for a check
// that was never evaluated.
type Result struct {
	status  Status
	display string
	raw     string
	message string
}

// ResultOption customises a Result under construction.
type ResultOption func(*resultParts)

type resultParts struct {
	display    string
	hasDisplay bool
	raw        string
	message    string
}

// WithDisplay sets the text shown in tables and reports.
func WithDisplay(v string) ResultOption {
	return func(p *resultParts) { p.display, p.hasDisplay = v, true }
}

// WithRaw sets the untruncated underlying value.
func WithRaw(v string) ResultOption {
	return func(p *resultParts) { p.raw = v }
}

// WithMessage attaches an outcome-specific message that takes precedence over
// the check's MissingMessage when the result is reported.
func WithMessage(v string) ResultOption {
	return func(p *resultParts) { p.message = v }
}

// NewResult builds a Result. Without WithDisplay the display text is the
// status name; without WithRaw the raw value is "".
func NewResult(status Status, opts ...ResultOption) (Result, error) {
	if !status.Valid() {
		return Result{}, ErrMissingStatus
	}
	var p resultParts
	for _, opt := range opts {
		opt(&p)
	}
	if !p.hasDisplay {
		p.display = status.String()
	}
	return Result{status: status, display: p.display, raw: p.raw, message: p.message}, nil
}

// MustResult is NewResult for callers that always pass a valid status.
func MustResult(status Status, opts ...ResultOption) Result {
	r, err := NewResult(status, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// OK, Warn and Fail are shorthands used by the checks.
func OK(display, raw string) Result {
	return MustResult(StatusOK, WithDisplay(display), WithRaw(raw))
}

func Warn(display, raw string) Result {
	return MustResult(StatusWarn, WithDisplay(display), WithRaw(raw))
}

func Fail(display, raw string) Result {
	return MustResult(StatusFail, WithDisplay(display), WithRaw(raw))
}

func (r Result) Status() Status  { return r.status }
func (r Result) Display() string { return r.display }
func (r Result) Raw() string     { return r.raw }
func (r Result) Message() string { return r.message }

func (r Result) IsOK() bool   { return r.status == StatusOK }
func (r Result) IsWarn() bool { return r.status == StatusWarn }
func (r Result) IsFail() bool { return r.status == StatusFail }

// Valid reports whether the result was actually produced by an evaluation.
func (r Result) Valid() bool { return r.status.Valid() }

type resultJSON struct {
	Status  Status `json:"status"`
	Display string `json:"display"`
	Raw     string `json:"raw"`
	Message string `json:"message,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{Status: r.status, Display: r.display, Raw: r.raw, Message: r.message})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var v resultJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if !v.Status.Valid() {
		return ErrMissingStatus
	}
	*r = Result{status: v.Status, display: v.Display, raw: v.Raw, message: v.Message}
	return nil
}
