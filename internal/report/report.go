package report

import (
	"encoding/json"

	"readalign/internal/transcript"
)

// Method names the strategy that resolved a sentence.
type Method string

const (
	MethodRemote Method = "remote"
	MethodFuzzy  Method = "fuzzy"
	MethodNone   Method = "none"
)

// Status grades a per-sentence outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Outcome records how one sentence resolved. Each sentence gets exactly one,
// written by whichever strategy resolved it first and never mutated after.
type Outcome struct {
	SentenceIndex int              `json:"idx"`
	Text          string           `json:"text"`
	Span          *transcript.Span `json:"span,omitempty"`
	Method        Method           `json:"method"`
	Score         float64          `json:"score"`
	Status        Status           `json:"status"`
	Reason        string           `json:"reason,omitempty"`
}

// Global aggregates a whole run.
type Global struct {
	Count        int            `json:"num_sentences"`
	Aligned      int            `json:"aligned"`
	Unaligned    int            `json:"unaligned"`
	Warnings     int            `json:"warnings"`
	MethodCounts map[Method]int `json:"method_counts"`
}

// Report is the diagnostic document for a run, serializable for downstream
// audio assembly and review. Details are ordered by sentence index.
type Report struct {
	Global  Global    `json:"global"`
	Details []Outcome `json:"details"`
}

// Build aggregates per-sentence outcomes. Details always include every
// non-ok sentence; fullDetails includes the ok ones too.
func Build(outcomes []Outcome, fullDetails bool) *Report {
	r := &Report{
		Global: Global{
			Count:        len(outcomes),
			MethodCounts: map[Method]int{},
		},
		Details: make([]Outcome, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusOK:
			r.Global.Aligned++
		case StatusWarning:
			r.Global.Aligned++
			r.Global.Warnings++
		default:
			r.Global.Unaligned++
		}
		if o.Method != MethodNone {
			r.Global.MethodCounts[o.Method]++
		}
		if fullDetails || o.Status != StatusOK {
			r.Details = append(r.Details, o)
		}
	}
	return r
}

// JSON renders the report as an indented document.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Truncate shortens sentence text for detail records.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
