// Package exclusion holds user-defined rules that keep endpoints out of
// analysis and display.
package exclusion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

var (
	ErrBlankID         = errors.New("exclusion: rule id must not be blank")
	ErrBlankPattern    = errors.New("exclusion: rule pattern must not be blank")
	ErrUnknownRuleType = errors.New("exclusion: unknown rule type")
	ErrRuleNotFound    = errors.New("exclusion: rule not found")
	ErrDuplicateRule   = errors.New("exclusion: rule id already exists")
)

// RuleType selects what part of an endpoint a rule is matched against.
type RuleType int

const (
	RuleHost RuleType = iota + 1
	RulePath
	RuleEndpoint
)

func (t RuleType) String() string {
	switch t {
	case RuleHost:
		return "HOST"
	case RulePath:
		return "PATH"
	case RuleEndpoint:
		return "ENDPOINT"
	}
	return fmt.Sprintf("RuleType(%d)", int(t))
}

func (t RuleType) valid() bool {
	return t >= RuleHost && t <= RuleEndpoint
}

// ParseRuleType accepts HOST, PATH or ENDPOINT in any case.
func ParseRuleType(s string) (RuleType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HOST":
		return RuleHost, nil
	case "PATH":
		return RulePath, nil
	case "ENDPOINT":
		return RuleEndpoint, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRuleType, s)
}

func (t RuleType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRuleType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *RuleType) UnmarshalText(b []byte) error {
	v, err := ParseRuleType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Rule is an immutable exclusion rule.
type Rule struct {
	id      string
	typ     RuleType
	pattern string
}

// NewRule creates a rule with a fresh random id.
func NewRule(typ RuleType, pattern string) (Rule, error) {
	return NewRuleWithID(uuid.NewString(), typ, pattern)
}

// NewRuleWithID creates a rule with a caller-supplied id.
func NewRuleWithID(id string, typ RuleType, pattern string) (Rule, error) {
	if strings.TrimSpace(id) == "" {
		return Rule{}, ErrBlankID
	}
	if !typ.valid() {
		return Rule{}, fmt.Errorf("%w: %d", ErrUnknownRuleType, int(typ))
	}
	if strings.TrimSpace(pattern) == "" {
		return Rule{}, ErrBlankPattern
	}
	return Rule{id: id, typ: typ, pattern: pattern}, nil
}

func (r Rule) ID() string      { return r.id }
func (r Rule) Type() RuleType  { return r.typ }
func (r Rule) Pattern() string { return r.pattern }
func (r Rule) String() string  { return r.typ.String() + " " + r.pattern }

// Matches reports whether the rule covers the request method+URL. URLs that
// fail to parse never match.
func (r Rule) Matches(method, rawURL string) bool {
	switch r.typ {
	case RuleEndpoint:
		return method+" "+rawURL == r.pattern
	case RuleHost:
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		return sameHost(r.pattern, u.Hostname())
	case RulePath:
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		path := u.Path
		if path == "" {
			path = "/"
		}
		if prefix, ok := strings.CutSuffix(r.pattern, "*"); ok {
			return strings.HasPrefix(path, prefix)
		}
		return path == r.pattern
	}
	return false
}

// sameHost compares hosts case-insensitively, treating a Unicode name and
// its punycode form as equal.
func sameHost(pattern, host string) bool {
	if host == "" {
		return false
	}
	if strings.EqualFold(pattern, host) {
		return true
	}
	a, err := idna.Lookup.ToASCII(pattern)
	if err != nil {
		return false
	}
	b, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return false
	}
	return strings.EqualFold(a, b)
}

// RuleSpec is the serialised form of a rule used in config files and API
// payloads. An empty ID asks for a generated one.
type RuleSpec struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Type    string `json:"type" yaml:"type"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Rule validates the spec and builds the rule.
func (s RuleSpec) Rule() (Rule, error) {
	typ, err := ParseRuleType(s.Type)
	if err != nil {
		return Rule{}, err
	}
	if s.ID == "" {
		return NewRule(typ, s.Pattern)
	}
	return NewRuleWithID(s.ID, typ, s.Pattern)
}

// Spec is the inverse of RuleSpec.Rule.
func (r Rule) Spec() RuleSpec {
	return RuleSpec{ID: r.id, Type: r.typ.String(), Pattern: r.pattern}
}

func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Spec())
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	var s RuleSpec
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s.ID == "" {
		return ErrBlankID
	}
	v, err := s.Rule()
	if err != nil {
		return err
	}
	*r = v
	return nil
}
