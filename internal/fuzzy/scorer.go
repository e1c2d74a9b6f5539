package fuzzy

import (
	"strings"

	"readalign/internal/config"
	"readalign/internal/normalize"
)

// Ratio is a 0-100 similarity between two strings based on edit distance,
// 100 meaning identical.
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 100 * (1 - float64(levenshtein(ra, rb))/float64(longest))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// TokensMatch reports whether two normalized tokens should be treated as the
// same word, absorbing transcription noise: edit distance within cutoff,
// number word-forms, hyphen variants, unit abbreviations and contractions.
func TokensMatch(a, b string, cutoff float64) bool {
	if a == b {
		return a != ""
	}
	if a == "" || b == "" {
		return false
	}
	if Ratio(a, b) >= cutoff {
		return true
	}
	if normalize.NumbersEquivalent(a, b) {
		return true
	}
	da, db := normalize.Dehyphenate(a), normalize.Dehyphenate(b)
	if da == db && len(da) > 3 {
		return true
	}
	ua, ub := normalize.Unit(a), normalize.Unit(b)
	if ua == ub && (ua != a || ub != b) {
		return true
	}
	if ea, ok := normalize.ExpandContraction(a); ok {
		if eb, okB := normalize.ExpandContraction(b); okB && strings.Join(ea, " ") == strings.Join(eb, " ") {
			return true
		}
		if strings.Join(ea, " ") == b {
			return true
		}
	}
	if eb, ok := normalize.ExpandContraction(b); ok && strings.Join(eb, " ") == a {
		return true
	}
	return false
}

// Candidate is a scored (start,end) word-index span for one sentence.
type Candidate struct {
	StartIdx    int
	EndIdx      int
	TokenSim    float64
	Coverage    float64
	GapPenalty  float64
	AnchorBonus float64
	BigramBonus float64
	Score       float64
}

func (c Candidate) width() int { return c.EndIdx - c.StartIdx }

// better implements the deterministic tie-break: higher score, then narrower
// span, then earlier start (the search visits starts in ascending order, so
// keeping the incumbent on full ties preserves the earliest).
func better(c, best Candidate) bool {
	if c.Score != best.Score {
		return c.Score > best.Score
	}
	return c.width() < best.width()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scoreSpan computes the composite score for sentence tokens against the
// span words tokens[start..end]. Every term is clamped to [0,1] before
// weighting and so is the total.
func scoreSpan(sentTokens []string, spanTokens []string, anchors []normalize.Anchor, idf normalize.IDF, w config.Weights, cutoff float64) Candidate {
	c := Candidate{}
	if len(sentTokens) == 0 || len(spanTokens) == 0 {
		return c
	}

	var simSum, weightSum float64
	matched := 0
	for _, tok := range sentTokens {
		best := 0.0
		for _, span := range spanTokens {
			if !TokensMatch(tok, span, cutoff) {
				continue
			}
			sim := Ratio(tok, span) / 100
			// Equivalence matches (numbers, units, contractions) can have
			// a low raw character ratio; floor their credit.
			if sim < 0.9 {
				sim = 0.9
			}
			if sim > best {
				best = sim
			}
		}
		// Long or compound tokens may span several transcript words
		// ("deep-sea" spoken as "deep sea").
		if best < 0.85 && len(tok) > 8 {
			if matchesCompound(tok, spanTokens, cutoff) {
				best = 0.95
			}
		}
		if best > 0 {
			matched++
		}
		weight := normalize.TokenWeight(tok) * (0.5 + idf.Score(tok))
		simSum += best * weight
		weightSum += weight
	}
	if weightSum > 0 {
		c.TokenSim = clamp01(simSum / weightSum)
	}
	c.Coverage = clamp01(float64(matched) / float64(len(sentTokens)))

	extra := len(spanTokens) - len(sentTokens)
	if extra < 0 {
		extra = 0
	}
	missing := len(sentTokens) - matched
	c.GapPenalty = clamp01(0.02*float64(extra) + 0.03*float64(missing))

	if len(anchors) > 0 {
		found := 0
		for _, a := range anchors {
			for _, span := range spanTokens {
				if TokensMatch(a.Token, span, cutoff) {
					found++
					break
				}
			}
		}
		c.AnchorBonus = clamp01(float64(found) / float64(len(anchors)))
	}

	c.BigramBonus = bigramBonus(sentTokens, spanTokens, cutoff)

	// Scale by the weight mass this sentence can actually earn, so a perfect
	// match scores 1.0 whether or not it has anchors or bigrams to win.
	scale := w.TokenSim + w.Coverage
	if len(anchors) > 0 {
		scale += w.AnchorBonus
	}
	if len(sentTokens) >= 2 {
		scale += w.BigramBonus
	}
	if scale <= 0 {
		return c
	}
	c.Score = clamp01((w.TokenSim*c.TokenSim +
		w.Coverage*c.Coverage -
		w.GapPenalty*c.GapPenalty +
		w.AnchorBonus*c.AnchorBonus +
		w.BigramBonus*c.BigramBonus) / scale)
	return c
}

// matchesCompound checks whether tok matches two or three consecutive span
// words joined together.
func matchesCompound(tok string, spanTokens []string, cutoff float64) bool {
	flat := normalize.Dehyphenate(tok)
	for j := 0; j < len(spanTokens)-1; j++ {
		if TokensMatch(flat, spanTokens[j]+spanTokens[j+1], cutoff) {
			return true
		}
		if j < len(spanTokens)-2 && TokensMatch(flat, spanTokens[j]+spanTokens[j+1]+spanTokens[j+2], cutoff) {
			return true
		}
	}
	return false
}

// bigramBonus is the fraction of adjacent sentence-token pairs whose order
// is preserved adjacently somewhere in the span.
func bigramBonus(sentTokens, spanTokens []string, cutoff float64) float64 {
	if len(sentTokens) < 2 {
		return 0
	}
	preserved := 0
	for i := 0; i < len(sentTokens)-1; i++ {
		for j := 0; j < len(spanTokens)-1; j++ {
			if TokensMatch(sentTokens[i], spanTokens[j], cutoff) && TokensMatch(sentTokens[i+1], spanTokens[j+1], cutoff) {
				preserved++
				break
			}
		}
	}
	return clamp01(float64(preserved) / float64(len(sentTokens)-1))
}
