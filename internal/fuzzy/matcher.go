package fuzzy

import (
	"fmt"

	"readalign/internal/config"
	"readalign/internal/normalize"
	"readalign/internal/report"
	"readalign/internal/transcript"
)

// Logger is the injected reporting sink; there is no package-level logger.
type Logger interface {
	Log(level, stage, message, detail string)
}

type nopLogger struct{}

func (nopLogger) Log(level, stage, message, detail string) {}

// anchorPrescan bounds how far past the cursor the matcher scans for anchor
// hits before narrowing the candidate range around them.
const (
	anchorPrescan    = 500
	anchorLeadSlack  = 50
	anchorTrailSlack = 150
)

// Match is the matcher's verdict for one sentence. StartIdx/EndIdx are word
// indices, valid only when Status is ok or warning.
type Match struct {
	StartIdx int
	EndIdx   int
	Score    float64
	Status   report.Status
	Reason   string
}

// Matcher aligns sentences to the word stream with a forward-only cursor.
// It is not safe for concurrent use: the cursor is owned by a single
// sequential pass over sentences in order.
type Matcher struct {
	words  []transcript.Word
	tokens []string
	idf    normalize.IDF
	cfg    config.Fuzzy
	logger Logger
	cursor int
}

// NewMatcher normalizes the word stream once and builds its rarity table.
// The stream is read-only for the matcher's lifetime.
func NewMatcher(words []transcript.Word, cfg config.Fuzzy, logger Logger) *Matcher {
	if logger == nil {
		logger = nopLogger{}
	}
	tokens := make([]string, len(words))
	flat := make([]string, 0, len(words))
	for i, w := range words {
		tokens[i] = normalize.Token(w.Text)
		flat = append(flat, normalize.Tokenize(w.Text)...)
	}
	return &Matcher{
		words:  words,
		tokens: tokens,
		idf:    normalize.ComputeIDF(flat),
		cfg:    cfg,
		logger: logger,
	}
}

// IDF exposes the transcript's document-frequency table for anchor
// extraction.
func (m *Matcher) IDF() normalize.IDF { return m.idf }

// Cursor is the word index before which no future match may start.
func (m *Matcher) Cursor() int { return m.cursor }

// SeedCursor advances the cursor to pos. Moves backward are ignored: the
// cursor is monotonic by contract.
func (m *Matcher) SeedCursor(pos int) {
	if pos > m.cursor {
		m.cursor = pos
	}
}

// Align finds the best span for one sentence at or after the cursor. On ok
// or warning the cursor advances past the span; on failure it stays put so
// the next sentence searches the same unconsumed region.
func (m *Matcher) Align(s transcript.Sentence) Match {
	if len(s.Tokens) == 0 {
		m.logger.Log("RISK", "FUZZY", fmt.Sprintf("sentence %d empty", s.Index), "no tokens after normalization")
		return Match{StartIdx: -1, EndIdx: -1, Status: report.StatusFailed, Reason: "no tokens after normalization"}
	}

	best, found := m.search(s, m.cfg.WindowTokens, m.cfg.ElasticGap, m.cfg.TokenRatio)
	if found && best.Score >= m.cfg.WarnAccept {
		return m.accept(s, best, "")
	}

	// One widened retry with relaxed matching before giving up.
	relaxed, foundRelaxed := m.search(s, m.cfg.WindowTokens+m.cfg.Fallback.ExpandWindow, m.cfg.Fallback.ElasticGap, m.cfg.Fallback.TokenRatio)
	if foundRelaxed && relaxed.Score >= m.cfg.WarnAccept {
		return m.accept(s, relaxed, "found with expanded search")
	}

	score := 0.0
	if found {
		score = best.Score
	}
	m.logger.Log("RISK", "FUZZY", fmt.Sprintf("sentence %d unmatched", s.Index), fmt.Sprintf("best score %.3f, cursor %d", score, m.cursor))
	return Match{StartIdx: -1, EndIdx: -1, Score: score, Status: report.StatusFailed, Reason: "no viable span found"}
}

func (m *Matcher) accept(s transcript.Sentence, c Candidate, note string) Match {
	status := report.StatusOK
	reason := note
	if c.Score < m.cfg.MinAccept {
		status = report.StatusWarning
		if reason == "" {
			reason = "acceptable but low score"
		}
	}
	m.cursor = c.EndIdx + 1
	m.logger.Log("ANALYSIS", "FUZZY",
		fmt.Sprintf("sentence %d matched words %d-%d", s.Index, c.StartIdx, c.EndIdx),
		fmt.Sprintf("score=%.3f sim=%.2f cov=%.2f gap=%.2f anchors=%.2f", c.Score, c.TokenSim, c.Coverage, c.GapPenalty, c.AnchorBonus))
	return Match{StartIdx: c.StartIdx, EndIdx: c.EndIdx, Score: c.Score, Status: status, Reason: reason}
}

// search scans candidate spans at or after the cursor within windowTokens.
// Candidate ends vary around the sentence length with at least ±50%
// tolerance to absorb contractions and expansions.
func (m *Matcher) search(s transcript.Sentence, windowTokens, elasticGap int, cutoff float64) (Candidate, bool) {
	if m.cursor >= len(m.tokens) {
		return Candidate{}, false
	}
	searchStart := m.cursor
	searchEnd := min(len(m.tokens), m.cursor+windowTokens)

	// Anchor hits near the cursor tighten the start range.
	if len(s.Anchors) > 0 {
		first, last := -1, -1
		prescanEnd := min(m.cursor+anchorPrescan, searchEnd)
		for i := m.cursor; i < prescanEnd; i++ {
			for _, a := range s.Anchors {
				if TokensMatch(a.Token, m.tokens[i], cutoff) {
					if first < 0 {
						first = i
					}
					last = i
					break
				}
			}
		}
		if first >= 0 {
			searchStart = max(m.cursor, first-anchorLeadSlack)
			searchEnd = min(len(m.tokens), last+anchorTrailSlack)
		}
	}

	elastic := max(elasticGap, len(s.Tokens)/2)

	var best Candidate
	found := false
	for start := searchStart; start < searchEnd; start++ {
		if !m.viableStart(s, start, cutoff) {
			continue
		}
		expectedEnd := start + len(s.Tokens) - 1
		endLo := max(start, expectedEnd-elastic)
		endHi := min(min(searchEnd, len(m.tokens))-1, expectedEnd+elastic)
		for end := endLo; end <= endHi; end++ {
			c := scoreSpan(s.Tokens, m.tokens[start:end+1], s.Anchors, m.idf, m.cfg.Weights, cutoff)
			c.StartIdx, c.EndIdx = start, end
			if !found || better(c, best) {
				best = c
				found = true
			}
		}
	}
	return best, found
}

// viableStart prunes candidate starts to words matching the sentence's first
// token or one of its anchors.
func (m *Matcher) viableStart(s transcript.Sentence, start int, cutoff float64) bool {
	if TokensMatch(s.Tokens[0], m.tokens[start], cutoff) {
		return true
	}
	for _, a := range s.Anchors {
		if TokensMatch(a.Token, m.tokens[start], cutoff) {
			return true
		}
	}
	return false
}
