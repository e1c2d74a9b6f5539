package hybrid

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readalign/internal/cache"
	"readalign/internal/config"
	"readalign/internal/remote"
	"readalign/internal/report"
	"readalign/internal/transcript"
)

type stubRemote struct {
	calls int64
	fn    func(sentence string) (remote.Result, error)
}

func (s *stubRemote) Align(ctx context.Context, sentence string, words []transcript.Word) (remote.Result, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.fn(sentence)
}

var natoNames = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
	"hotel", "india", "juliett", "kilo", "lima", "mike", "november",
	"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
}

// fixture builds 21 five-word sentences and the word stream spelling them
// out in order, one word per 500ms.
func fixture() ([]transcript.Word, []string, map[string]transcript.Span) {
	const step = int64(500)
	var words []transcript.Word
	sentences := make([]string, 0, len(natoNames))
	truth := make(map[string]transcript.Span, len(natoNames))

	for i, name := range natoNames {
		sentence := fmt.Sprintf("%s crossing checkpoint number %d", name, i)
		sentences = append(sentences, sentence)
		start := int64(len(words)) * step
		for _, tok := range strings.Fields(sentence) {
			ws := int64(len(words)) * step
			words = append(words, transcript.Word{Text: tok, StartMS: ws, EndMS: ws + step - 100})
		}
		truth[sentence] = transcript.Span{StartMS: start, EndMS: int64(len(words))*step - 100}
	}
	return words, sentences, truth
}

func TestRemoteDisabledRunsFuzzyOnly(t *testing.T) {
	words, sentences, _ := fixture()
	stub := &stubRemote{fn: func(string) (remote.Result, error) {
		return remote.Result{}, errors.New("must not be called")
	}}
	cfg := config.Default()
	cfg.Remote.Enabled = false

	spans, rep, err := New(cfg, stub, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)

	assert.Zero(t, atomic.LoadInt64(&stub.calls), "remote capability must not be called when disabled")
	assert.Zero(t, rep.Global.MethodCounts[report.MethodRemote])
	assert.Equal(t, len(sentences), rep.Global.MethodCounts[report.MethodFuzzy]+countNil(spans))
	for _, d := range rep.Details {
		assert.Contains(t, []report.Method{report.MethodFuzzy, report.MethodNone}, d.Method)
	}
}

func TestHybridMixedMethods(t *testing.T) {
	words, sentences, truth := fixture()

	// Three sentences fail remotely and must fall back to fuzzy.
	failing := map[string]bool{sentences[0]: true, sentences[7]: true, sentences[14]: true}
	stub := &stubRemote{fn: func(sentence string) (remote.Result, error) {
		if failing[sentence] {
			return remote.Result{}, errors.New("capability timeout")
		}
		span := truth[sentence]
		return remote.Result{StartMS: span.StartMS, EndMS: span.EndMS, Confidence: 0.95}, nil
	}}

	cfg := config.Default()
	cfg.Remote.Enabled = true

	spans, rep, err := New(cfg, stub, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)

	assert.Equal(t, 21, rep.Global.Count)
	assert.Equal(t, 18, rep.Global.MethodCounts[report.MethodRemote])
	assert.LessOrEqual(t, rep.Global.MethodCounts[report.MethodFuzzy], 3)
	assert.LessOrEqual(t, rep.Global.Aligned, 21)
	assert.Len(t, spans, 21)

	// Each sentence resolved exactly once, in order.
	for i, span := range spans {
		if span != nil {
			assert.GreaterOrEqual(t, span.EndMS, span.StartMS, "sentence %d", i)
		}
	}
}

func TestRemoteLowConfidenceFallsBack(t *testing.T) {
	words, sentences, truth := fixture()
	stub := &stubRemote{fn: func(sentence string) (remote.Result, error) {
		span := truth[sentence]
		return remote.Result{StartMS: span.StartMS, EndMS: span.EndMS, Confidence: 0.2}, nil
	}}

	cfg := config.Default()
	cfg.Remote.Enabled = true
	cfg.Remote.ConfidenceFloor = 0.5

	_, rep, err := New(cfg, stub, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)
	assert.Zero(t, rep.Global.MethodCounts[report.MethodRemote], "below-floor results must not resolve remotely")
}

func TestRemoteWarnConfidence(t *testing.T) {
	words, sentences, truth := fixture()
	stub := &stubRemote{fn: func(sentence string) (remote.Result, error) {
		span := truth[sentence]
		return remote.Result{StartMS: span.StartMS, EndMS: span.EndMS, Confidence: 0.85}, nil
	}}

	cfg := config.Default()
	cfg.Remote.Enabled = true

	_, rep, err := New(cfg, stub, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)
	assert.Equal(t, 21, rep.Global.MethodCounts[report.MethodRemote])
	assert.Equal(t, 21, rep.Global.Warnings, "confidence below warn threshold reports warnings")
}

func TestValidationFailureIsFatal(t *testing.T) {
	words := []transcript.Word{
		{Text: "b", StartMS: 500, EndMS: 600},
		{Text: "a", StartMS: 100, EndMS: 200},
	}
	_, _, err := New(config.Default(), nil, nil, nil).Align(context.Background(), words, []string{"a b"})
	require.Error(t, err)
	var verr *transcript.ValidationError
	assert.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
}

func TestInvalidConfigIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.Fuzzy.MinAccept = 0
	_, _, err := New(cfg, nil, nil, nil).Align(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_accept")
}

func TestFailedSentenceStillReported(t *testing.T) {
	words, sentences, _ := fixture()
	sentences[5] = "zyzzyva quux flibbertigibbet"
	cfg := config.Default()

	spans, rep, err := New(cfg, nil, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)

	assert.Nil(t, spans[5])
	assert.Equal(t, 1, rep.Global.Unaligned)

	var failed *report.Outcome
	for i := range rep.Details {
		if rep.Details[i].Status == report.StatusFailed {
			failed = &rep.Details[i]
			break
		}
	}
	require.NotNil(t, failed, "failed sentence must appear in details")
	assert.Equal(t, 5, failed.SentenceIndex)
	assert.Equal(t, report.MethodNone, failed.Method)
}

func TestCursorSeededPastRemoteSpans(t *testing.T) {
	words, sentences, truth := fixture()

	// All but the last sentence resolve remotely; the last falls back. Its
	// fuzzy search must start after the remotely consumed region, not at 0.
	last := sentences[len(sentences)-1]
	stub := &stubRemote{fn: func(sentence string) (remote.Result, error) {
		if sentence == last {
			return remote.Result{}, errors.New("capability timeout")
		}
		span := truth[sentence]
		return remote.Result{StartMS: span.StartMS, EndMS: span.EndMS, Confidence: 0.95}, nil
	}}

	cfg := config.Default()
	cfg.Remote.Enabled = true

	spans, rep, err := New(cfg, stub, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)
	require.NotNil(t, spans[len(spans)-1])

	want := truth[last]
	got := spans[len(spans)-1]
	assert.Equal(t, max64(0, want.StartMS-cfg.PadMS), got.StartMS)
	assert.Equal(t, want.EndMS+cfg.PadMS, got.EndMS)
	assert.Equal(t, 1, rep.Global.MethodCounts[report.MethodFuzzy])
}

func TestCacheSkipsRepeatedRemoteCalls(t *testing.T) {
	words, sentences, truth := fixture()
	stub := &stubRemote{fn: func(sentence string) (remote.Result, error) {
		span := truth[sentence]
		return remote.Result{StartMS: span.StartMS, EndMS: span.EndMS, Confidence: 0.95}, nil
	}}

	store, err := cache.Open(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	defer store.Close()

	cfg := config.Default()
	cfg.Remote.Enabled = true

	aligner := New(cfg, stub, store, nil)
	_, _, err = aligner.Align(context.Background(), words, sentences)
	require.NoError(t, err)
	first := atomic.LoadInt64(&stub.calls)
	assert.Equal(t, int64(21), first)

	_, rep, err := aligner.Align(context.Background(), words, sentences)
	require.NoError(t, err)
	assert.Equal(t, first, atomic.LoadInt64(&stub.calls), "second run must be served from cache")
	assert.Equal(t, 21, rep.Global.MethodCounts[report.MethodRemote])
}

func TestEmptySentenceGetsExplicitOutcome(t *testing.T) {
	words, sentences, _ := fixture()
	sentences[3] = "..."

	_, rep, err := New(config.Default(), nil, nil, nil).Align(context.Background(), words, sentences)
	require.NoError(t, err)

	var found bool
	for _, d := range rep.Details {
		if d.SentenceIndex == 3 {
			found = true
			assert.Equal(t, report.StatusFailed, d.Status)
			assert.Equal(t, "no tokens after normalization", d.Reason)
		}
	}
	assert.True(t, found, "empty sentence must still yield an outcome")
}

func countNil(spans []*transcript.Span) int {
	n := 0
	for _, s := range spans {
		if s == nil {
			n++
		}
	}
	return n
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
