package server

import (
	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/exclusion"
)

// AnalyzeRequest carries one captured exchange in wire form.
type AnalyzeRequest = analyzer.RawPair

// RuleRequest creates or replaces an exclusion rule.
type RuleRequest = exclusion.RuleSpec

// ExcludeCheckRequest asks whether an endpoint would be skipped.
type ExcludeCheckRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// ResultsResponse is the filtered results table.
type ResultsResponse struct {
	Columns []string       `json:"columns"`
	Rows    []analyzer.Row `json:"rows"`
}

// RulesMessage is sent on /ws/exclusions for every rule-set change.
type RulesMessage struct {
	Rules []exclusion.Rule `json:"rules"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
