// Package ingest loads the two external inputs of an alignment run: the
// timestamped word list from the transcription service and the pre-segmented
// sentence list from the segmenter. Segmentation itself happens upstream;
// loaders here only read its output.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"readalign/internal/transcript"
)

// LoadWords reads a word-timestamp JSON file, either a bare array or an
// object with a "words" field (the transcription service emits the latter).
func LoadWords(path string) ([]transcript.Word, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}

	var wrapped struct {
		Words []transcript.Word `json:"words"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Words) > 0 {
		return wrapped.Words, nil
	}

	var words []transcript.Word
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("parse words %s: %w", filepath.Base(path), err)
	}
	return words, nil
}

// LoadSentences reads a pre-segmented sentence list: a JSON string array, a
// text file with one sentence per line, or a PDF proof whose lines are
// already one sentence each.
func LoadSentences(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sentences: %w", err)
		}
		var sentences []string
		if err := json.Unmarshal(raw, &sentences); err != nil {
			return nil, fmt.Errorf("parse sentences %s: %w", filepath.Base(path), err)
		}
		return trimLines(sentences), nil
	case ".pdf":
		text, err := extractPDFText(path)
		if err != nil {
			return nil, err
		}
		return trimLines(strings.Split(text, "\n")), nil
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sentences: %w", err)
		}
		return trimLines(strings.Split(string(raw), "\n")), nil
	}
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text found in %s", filepath.Base(path))
	}
	return b.String(), nil
}

func trimLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
