// Package hybrid orchestrates the two alignment strategies: a concurrent
// remote phase across all sentences, a join barrier, then a sequential fuzzy
// fallback pass that owns the monotonic cursor.
package hybrid

import (
	"context"
	"fmt"
	"sync"

	"readalign/internal/cache"
	"readalign/internal/config"
	"readalign/internal/fuzzy"
	"readalign/internal/remote"
	"readalign/internal/report"
	"readalign/internal/transcript"
)

// RemoteAligner is the external capability contract. remote.Client satisfies
// it; tests substitute stubs.
type RemoteAligner interface {
	Align(ctx context.Context, sentence string, words []transcript.Word) (remote.Result, error)
}

// Logger is the injected reporting sink shared with the phases.
type Logger interface {
	Log(level, stage, message, detail string)
}

type nopLogger struct{}

func (nopLogger) Log(level, stage, message, detail string) {}

const detailTextLimit = 120

// Aligner resolves sentence spans with the hybrid policy: prefer the remote
// capability per sentence, fall back to local fuzzy matching on failure.
type Aligner struct {
	cfg    config.Config
	remote RemoteAligner
	store  *cache.Cache
	logger Logger
}

// New builds an orchestrator. remoteAligner and store may be nil; a nil
// remoteAligner disables the remote phase regardless of configuration.
func New(cfg config.Config, remoteAligner RemoteAligner, store *cache.Cache, logger Logger) *Aligner {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Aligner{cfg: cfg, remote: remoteAligner, store: store, logger: logger}
}

// Align resolves every sentence against the word stream and returns one
// optional span per sentence plus the diagnostic report. Only malformed
// input or configuration aborts the run; per-sentence failures are recorded
// and processing continues.
func (a *Aligner) Align(ctx context.Context, words []transcript.Word, sentences []string) ([]*transcript.Span, *report.Report, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := transcript.ValidateWords(words); err != nil {
		return nil, nil, fmt.Errorf("validate transcript: %w", err)
	}

	// The matcher normalizes the word stream and owns the rarity table the
	// anchor extractor reads.
	matcher := fuzzy.NewMatcher(words, a.cfg.Fuzzy, a.logger)
	sents := transcript.BuildSentences(sentences, matcher.IDF(), a.cfg.Fuzzy.MaxAnchors)

	var remoteResults []*remote.Result
	if a.cfg.Remote.Enabled && a.remote != nil {
		remoteResults = a.remotePhase(ctx, words, sents)
	} else {
		remoteResults = make([]*remote.Result, len(sents))
		if a.cfg.Remote.Enabled {
			a.logger.Log("RISK", "REMOTE", "remote alignment enabled but no client wired", "running fuzzy-only")
		}
	}

	spans := make([]*transcript.Span, len(sents))
	outcomes := make([]report.Outcome, len(sents))

	// Fallback pass: strictly sequential in sentence order. The cursor must
	// move forward only, and it is seeded past every span an earlier
	// sentence already consumed, remote or fuzzy.
	for i, s := range sents {
		if r := remoteResults[i]; r != nil {
			spans[i] = a.pad(r.StartMS, r.EndMS)
			outcomes[i] = a.remoteOutcome(s, spans[i], r)
			matcher.SeedCursor(transcript.IndexAfter(words, r.EndMS))
			continue
		}
		m := matcher.Align(s)
		if m.Status == report.StatusFailed {
			outcomes[i] = report.Outcome{
				SentenceIndex: s.Index,
				Text:          report.Truncate(s.Raw, detailTextLimit),
				Method:        report.MethodNone,
				Score:         m.Score,
				Status:        report.StatusFailed,
				Reason:        m.Reason,
			}
			continue
		}
		spans[i] = a.pad(words[m.StartIdx].StartMS, words[m.EndIdx].EndMS)
		outcomes[i] = report.Outcome{
			SentenceIndex: s.Index,
			Text:          report.Truncate(s.Raw, detailTextLimit),
			Span:          spans[i],
			Method:        report.MethodFuzzy,
			Score:         m.Score,
			Status:        m.Status,
			Reason:        m.Reason,
		}
	}

	return spans, report.Build(outcomes, a.cfg.FullDetails), nil
}

// remotePhase dispatches one task per sentence over a bounded worker pool.
// Each task holds immutable inputs and writes only its own result slot; the
// WaitGroup is the barrier no fuzzy work crosses.
func (a *Aligner) remotePhase(ctx context.Context, words []transcript.Word, sents []transcript.Sentence) []*remote.Result {
	results := make([]*remote.Result, len(sents))

	digest := ""
	if a.store != nil {
		digest = cache.TranscriptDigest(words)
	}

	workers := a.cfg.Remote.MaxWorkers
	if workers > len(sents) {
		workers = len(sents)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = a.alignRemote(ctx, words, sents[i], len(sents), digest)
			}
		}()
	}
	for i := range sents {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// alignRemote resolves one sentence remotely, consulting the cache first.
// Any failure returns nil: the sentence is queued for fuzzy fallback.
func (a *Aligner) alignRemote(ctx context.Context, words []transcript.Word, s transcript.Sentence, total int, digest string) *remote.Result {
	if len(s.Tokens) == 0 {
		return nil
	}

	key := ""
	if a.store != nil {
		key = cache.Key(digest, s.Raw)
		if e, ok, err := a.store.Get(key); err != nil {
			a.logger.Log("WARN", "CACHE", "cache read failed", err.Error())
		} else if ok {
			a.logger.Log("INFO", "CACHE", fmt.Sprintf("sentence %d served from cache", s.Index), "")
			return &remote.Result{StartMS: e.StartMS, EndMS: e.EndMS, Confidence: e.Confidence}
		}
	}

	res, err := a.remote.Align(ctx, s.Raw, a.contextWindow(words, s.Index, total))
	if err != nil {
		a.logger.Log("WARN", "REMOTE", fmt.Sprintf("sentence %d falls back to fuzzy", s.Index), err.Error())
		return nil
	}
	if res.Confidence < a.cfg.Remote.ConfidenceFloor {
		a.logger.Log("WARN", "REMOTE",
			fmt.Sprintf("sentence %d falls back to fuzzy", s.Index),
			fmt.Sprintf("confidence %.2f below floor %.2f", res.Confidence, a.cfg.Remote.ConfidenceFloor))
		return nil
	}

	if a.store != nil {
		if err := a.store.Put(key, cache.Entry{StartMS: res.StartMS, EndMS: res.EndMS, Confidence: res.Confidence}); err != nil {
			a.logger.Log("WARN", "CACHE", "cache write failed", err.Error())
		}
	}
	a.logger.Log("ANALYSIS", "REMOTE",
		fmt.Sprintf("sentence %d aligned remotely", s.Index),
		fmt.Sprintf("%dms-%dms confidence=%.2f", res.StartMS, res.EndMS, res.Confidence))
	return &res
}

// contextWindow bounds the words sent with a request, centered on the
// sentence's estimated position in the stream.
func (a *Aligner) contextWindow(words []transcript.Word, index, total int) []transcript.Word {
	if total <= 0 {
		return nil
	}
	center := int((float64(index) + 0.5) / float64(total) * float64(len(words)))
	radius := a.cfg.Remote.ContextWords / 2
	if radius < 1 {
		radius = 1
	}
	return transcript.ContextWindow(words, center, radius)
}

func (a *Aligner) remoteOutcome(s transcript.Sentence, span *transcript.Span, r *remote.Result) report.Outcome {
	status := report.StatusOK
	reason := ""
	if r.Confidence < a.cfg.Remote.WarnConfidence {
		status = report.StatusWarning
		reason = "low confidence alignment"
	}
	return report.Outcome{
		SentenceIndex: s.Index,
		Text:          report.Truncate(s.Raw, detailTextLimit),
		Span:          span,
		Method:        report.MethodRemote,
		Score:         r.Confidence,
		Status:        status,
		Reason:        reason,
	}
}

func (a *Aligner) pad(startMS, endMS int64) *transcript.Span {
	start := startMS - a.cfg.PadMS
	if start < 0 {
		start = 0
	}
	return &transcript.Span{StartMS: start, EndMS: endMS + a.cfg.PadMS}
}
