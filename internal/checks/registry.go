package checks

import (
	"encoding/json"
	"fmt"
)

// Registry is a fixed, ordered list of checks. Order is significant: a check
// may read context values written by checks earlier in the list.
type Registry struct {
	checks []Check
	byName map[string]Check
}

// NewRegistry builds a registry from checks in evaluation order. Names must
// be unique.
func NewRegistry(checks ...Check) (*Registry, error) {
	r := &Registry{
		checks: make([]Check, 0, len(checks)),
		byName: make(map[string]Check, len(checks)),
	}
	for _, c := range checks {
		if c == nil {
			return nil, fmt.Errorf("checks: nil check in registry")
		}
		if _, dup := r.byName[c.Name()]; dup {
			return nil, fmt.Errorf("checks: duplicate check name %q", c.Name())
		}
		r.checks = append(r.checks, c)
		r.byName[c.Name()] = c
	}
	return r, nil
}

// DefaultRegistry returns the standard checks. CSP runs first so its context
// value is visible to every later check.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		NewCSPCheck(),
		NewXSSProtectionCheck(),
		NewHSTSCheck(),
		NewContentTypeCheck(),
		NewCacheControlCheck(),
		NewCookieCheck(),
		NewCORSCheck(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Checks returns the checks in evaluation order.
func (r *Registry) Checks() []Check {
	return append([]Check(nil), r.checks...)
}

func (r *Registry) Lookup(name string) (Check, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Columns returns the column names in evaluation order.
func (r *Registry) Columns() []string {
	cols := make([]string, len(r.checks))
	for i, c := range r.checks {
		cols[i] = c.ColumnName()
	}
	return cols
}

// Evaluate runs every check in order over h with one shared context. A nil
// ctx gets a fresh context; callers seed values such as the request Origin
// before calling.
func (r *Registry) Evaluate(h Header, ctx *EvalContext) *Results {
	if ctx == nil {
		ctx = NewEvalContext()
	}
	res := newResults(len(r.checks))
	for _, c := range r.checks {
		res.put(c.Name(), c.Evaluate(h, ctx))
	}
	return res
}

// NamedResult pairs a check name with its result.
type NamedResult struct {
	Check  string `json:"check"`
	Result Result `json:"result"`
}

// Results maps check names to results, preserving evaluation order.
type Results struct {
	entries []NamedResult
	index   map[string]int
}

func newResults(n int) *Results {
	return &Results{entries: make([]NamedResult, 0, n), index: make(map[string]int, n)}
}

func (rs *Results) put(name string, r Result) {
	if i, ok := rs.index[name]; ok {
		rs.entries[i].Result = r
		return
	}
	rs.index[name] = len(rs.entries)
	rs.entries = append(rs.entries, NamedResult{Check: name, Result: r})
}

// Get returns the result for a check name; the zero Result when absent.
func (rs *Results) Get(name string) (Result, bool) {
	if rs == nil {
		return Result{}, false
	}
	i, ok := rs.index[name]
	if !ok {
		return Result{}, false
	}
	return rs.entries[i].Result, true
}

// Entries returns the results in evaluation order.
func (rs *Results) Entries() []NamedResult {
	if rs == nil {
		return nil
	}
	return append([]NamedResult(nil), rs.entries...)
}

func (rs *Results) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.entries)
}

func (rs *Results) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(rs.entries)
}

func (rs *Results) UnmarshalJSON(b []byte) error {
	var entries []NamedResult
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	*rs = *newResults(len(entries))
	for _, e := range entries {
		rs.put(e.Check, e.Result)
	}
	return nil
}

// Overall aggregates the checks that affect overall status: FAIL if any of
// them failed, else WARN if any warned, else OK.
func Overall(reg *Registry, rs *Results) Status {
	overall := StatusOK
	for _, c := range reg.checks {
		if !c.AffectsOverallStatus() {
			continue
		}
		r, ok := rs.Get(c.Name())
		if !ok {
			continue
		}
		switch {
		case r.IsFail():
			return StatusFail
		case r.IsWarn():
			overall = StatusWarn
		}
	}
	return overall
}

// HasIssues reports whether any result, advisory or not, is WARN or FAIL.
func HasIssues(rs *Results) bool {
	for _, e := range rs.Entries() {
		if e.Result.IsFail() || e.Result.IsWarn() {
			return true
		}
	}
	return false
}
