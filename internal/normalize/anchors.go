package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// IDF maps a token to a rarity score in (0,1]; rarer tokens score higher.
type IDF map[string]float64

// ComputeIDF builds the document-frequency table for the transcript token
// stream. The table is read-only for the rest of the run.
func ComputeIDF(tokens []string) IDF {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	total := float64(len(tokens))
	if total == 0 {
		total = 1
	}
	idf := make(IDF, len(counts))
	for tok, freq := range counts {
		idf[tok] = 1.0 / (1.0 + float64(freq)/total)
	}
	return idf
}

// Score returns the rarity of token, with a neutral default for tokens the
// transcript never produced.
func (idf IDF) Score(token string) float64 {
	if s, ok := idf[token]; ok {
		return s
	}
	return 0.5
}

// Anchor is a high-information sentence token used to bias span scoring.
type Anchor struct {
	Pos   int
	Token string
}

// anchorRarity is the IDF floor below which a long word is too common to
// anchor on.
const anchorRarity = 0.5

// ExtractAnchors flags the most distinctive tokens of a sentence: numbers,
// tokens capitalized mid-sentence in the raw text, and long rare words.
// Stopwords never anchor. The result is position-ordered and may be empty.
func ExtractAnchors(raw string, tokens []string, idf IDF, maxAnchors int) []Anchor {
	if maxAnchors <= 0 || len(tokens) == 0 {
		return nil
	}

	capitalized := midSentenceCapitals(raw)

	type scored struct {
		score float64
		pos   int
		token string
	}
	candidates := make([]scored, 0, len(tokens))
	for pos, tok := range tokens {
		if IsStopword(tok) {
			continue
		}
		switch {
		case IsNumeric(tok):
			candidates = append(candidates, scored{idf.Score(tok) + 1.0, pos, tok})
		case capitalized[tok]:
			candidates = append(candidates, scored{idf.Score(tok) + 0.5, pos, tok})
		case len(tok) >= 5 && idf.Score(tok) >= anchorRarity:
			candidates = append(candidates, scored{idf.Score(tok), pos, tok})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pos < candidates[j].pos
	})
	if len(candidates) > maxAnchors {
		candidates = candidates[:maxAnchors]
	}

	anchors := make([]Anchor, 0, len(candidates))
	for _, c := range candidates {
		anchors = append(anchors, Anchor{Pos: c.pos, Token: c.token})
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].Pos < anchors[j].Pos })
	return anchors
}

// midSentenceCapitals collects the normalized forms of raw words that start
// with an upper-case letter anywhere past the first word. Capitalization is
// read before normalization because normalization lowercases everything.
func midSentenceCapitals(raw string) map[string]bool {
	fields := strings.Fields(raw)
	out := make(map[string]bool)
	for i, f := range fields {
		if i == 0 {
			continue
		}
		r := []rune(strings.TrimLeft(f, `"'([{`))
		if len(r) == 0 || !unicode.IsUpper(r[0]) {
			continue
		}
		if tok := Token(f); tok != "" {
			out[strings.Fields(tok)[0]] = true
		}
	}
	return out
}
