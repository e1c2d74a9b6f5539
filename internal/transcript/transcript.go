package transcript

import (
	"fmt"
	"sort"

	"readalign/internal/normalize"
)

// Word is one token of the timestamped transcript. Times are milliseconds
// from the start of the recording.
type Word struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start"`
	EndMS   int64  `json:"end"`
}

// Span locates a sentence within the transcript audio.
type Span struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// Sentence is one unit of the canonical reference text, pre-segmented
// upstream, carrying its normalized tokens and anchor set.
type Sentence struct {
	Index   int
	Raw     string
	Tokens  []string
	Anchors []normalize.Anchor
}

// ValidationError rejects a malformed word list before alignment begins.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transcript word %d: %s", e.Index, e.Reason)
}

// ValidateWords checks the invariants the aligner depends on: timestamps are
// non-negative, each word ends no earlier than it starts, and the list is
// ordered by non-decreasing start time.
func ValidateWords(words []Word) error {
	var prev int64
	for i, w := range words {
		if w.StartMS < 0 {
			return &ValidationError{Index: i, Reason: "negative start time"}
		}
		if w.StartMS > w.EndMS {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("start %dms after end %dms", w.StartMS, w.EndMS)}
		}
		if w.StartMS < prev {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("start %dms before previous word at %dms", w.StartMS, prev)}
		}
		prev = w.StartMS
	}
	return nil
}

// BuildSentences tokenizes and anchors the segmenter's sentence list.
// Embedded quote marks are stripped first so dialogue lines compare equal to
// their spoken form.
func BuildSentences(raws []string, idf normalize.IDF, maxAnchors int) []Sentence {
	sentences := make([]Sentence, len(raws))
	for i, raw := range raws {
		stripped := normalize.StripEmbeddedQuotes(raw)
		tokens := normalize.Tokenize(stripped)
		sentences[i] = Sentence{
			Index:   i,
			Raw:     raw,
			Tokens:  tokens,
			Anchors: normalize.ExtractAnchors(stripped, tokens, idf, maxAnchors),
		}
	}
	return sentences
}

// ContextWindow returns the words within radius positions of center, clamped
// to the stream bounds.
func ContextWindow(words []Word, center, radius int) []Word {
	if len(words) == 0 || radius <= 0 {
		return nil
	}
	lo := center - radius
	if lo < 0 {
		lo = 0
	}
	hi := center + radius
	if hi > len(words) {
		hi = len(words)
	}
	if lo >= hi {
		return nil
	}
	return words[lo:hi]
}

// IndexAfter returns the index of the first word starting at or after ms,
// or len(words) when no word does.
func IndexAfter(words []Word, ms int64) int {
	return sort.Search(len(words), func(i int) bool {
		return words[i].StartMS >= ms
	})
}
