package checks

// Header is the read side of an HTTP header block that checks evaluate.
// model.Header implements it.
type Header interface {
	// Value returns the first value of name, case-insensitively.
	Value(name string) (string, bool)
	// Values returns every value of name in transmission order.
	Values(name string) []string
}

// Check is one security-header policy.
type Check interface {
	// Name is the human name; results are keyed by it.
	Name() string
	// ColumnName is the short table heading.
	ColumnName() string
	// MissingMessage explains a WARN or FAIL verdict. A result's own
	// Message, when set, takes precedence (see MessageFor).
	MissingMessage() string
	// MatchesHeaderLine reports whether the lowercased raw header line is
	// owned by this check for display purposes.
	MatchesHeaderLine(lowerLine string) bool
	// AffectsOverallStatus reports whether a WARN or FAIL here counts toward
	// the aggregate verdict.
	AffectsOverallStatus() bool
	// Evaluate runs the policy. It may read and write ctx.
	Evaluate(h Header, ctx *EvalContext) Result
	// Patterns lists the literal, case-insensitive substrings to highlight
	// for each verdict.
	Patterns() Patterns
}

// WholeLineColorer is implemented by checks that only want some of the lines
// they own coloured as a whole when no segments were produced.
type WholeLineColorer interface {
	WholeLineColored(lowerLine string) bool
}

// Patterns are highlight literals gated by verdict: Red is searched only on
// FAIL, Yellow only on WARN, Green only on OK.
type Patterns struct {
	Red    []string
	Yellow []string
	Green  []string
}

// Empty reports whether no pattern is declared at all.
func (p Patterns) Empty() bool {
	return len(p.Red) == 0 && len(p.Yellow) == 0 && len(p.Green) == 0
}

// For returns the list consulted for a given verdict.
func (p Patterns) For(s Status) []string {
	switch s {
	case StatusFail:
		return p.Red
	case StatusWarn:
		return p.Yellow
	case StatusOK:
		return p.Green
	}
	return nil
}

// base carries the static metadata and the default behaviour shared by the
// concrete checks.
type base struct {
	name    string
	column  string
	missing string
}

func (b base) Name() string               { return b.name }
func (b base) ColumnName() string         { return b.column }
func (b base) MissingMessage() string     { return b.missing }
func (b base) AffectsOverallStatus() bool { return true }
func (b base) Patterns() Patterns         { return Patterns{} }

// MessageFor returns the explanation for a non-OK result.
func MessageFor(c Check, r Result) string {
	if r.Message() != "" {
		return r.Message()
	}
	return c.MissingMessage()
}

func headerValue(h Header, name string) string {
	if h == nil {
		return ""
	}
	v, _ := h.Value(name)
	return v
}
