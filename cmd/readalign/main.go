// readalign is a diagnostic runner for the alignment engine: it loads a
// timestamped word list and a pre-segmented sentence list, resolves spans
// and prints the quality report. The production pipeline (audio handling,
// segmentation, manifest assembly) lives elsewhere and consumes the same
// packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"

	"readalign/internal/cache"
	"readalign/internal/config"
	"readalign/internal/hybrid"
	"readalign/internal/ingest"
	"readalign/internal/remote"
	"readalign/internal/report"
	"readalign/internal/transcript"
)

type printLogger struct{}

func (printLogger) Log(level, stage, message, detail string) {
	if detail != "" {
		fmt.Fprintf(os.Stderr, "[%s] [%s] %s | %s\n", level, stage, message, detail)
	} else {
		fmt.Fprintf(os.Stderr, "[%s] [%s] %s\n", level, stage, message)
	}
}

type quietLogger struct{}

func (quietLogger) Log(level, stage, message, detail string) {}

func main() {
	wordsPath := flag.String("words", "", "word timestamp JSON file (required)")
	sentencesPath := flag.String("sentences", "", "sentence list: .json, .txt or .pdf (required)")
	configPath := flag.String("config", "", "YAML config file; defaults apply when omitted")
	outPath := flag.String("out", "", "write the report JSON here")
	useRemote := flag.Bool("remote", false, "enable the remote alignment capability")
	compare := flag.Bool("compare", false, "run fuzzy-only and hybrid, print both summaries")
	full := flag.Bool("full", false, "include ok sentences in report details")
	verbose := flag.Bool("verbose", false, "print per-sentence progress to stderr")
	flag.Parse()

	if *wordsPath == "" || *sentencesPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *useRemote {
		cfg.Remote.Enabled = true
	}
	if *full {
		cfg.FullDetails = true
	}

	words, err := ingest.LoadWords(*wordsPath)
	if err != nil {
		log.Fatalf("load words: %v", err)
	}
	sentences, err := ingest.LoadSentences(*sentencesPath)
	if err != nil {
		log.Fatalf("load sentences: %v", err)
	}

	var logger hybrid.Logger = quietLogger{}
	if *verbose {
		logger = printLogger{}
	}

	if *compare {
		fuzzyCfg := cfg
		fuzzyCfg.Remote.Enabled = false
		_, fuzzyReport, err := hybrid.New(fuzzyCfg, nil, nil, logger).Align(context.Background(), words, sentences)
		if err != nil {
			log.Fatalf("fuzzy-only alignment: %v", err)
		}
		fmt.Println("fuzzy-only:")
		printSummary(fuzzyReport)
	}

	aligner, store := buildAligner(cfg, logger)
	if store != nil {
		defer store.Close()
	}
	spans, rep, err := aligner.Align(context.Background(), words, sentences)
	if err != nil {
		log.Fatalf("alignment: %v", err)
	}

	if *compare {
		fmt.Println("hybrid:")
	}
	printSummary(rep)
	printDetails(rep)

	if *outPath != "" {
		doc, err := rep.JSON()
		if err != nil {
			log.Fatalf("encode report: %v", err)
		}
		if err := os.WriteFile(*outPath, doc, 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
		fmt.Printf("report written to %s (%d spans)\n", *outPath, countSpans(spans))
	}
}

func buildAligner(cfg config.Config, logger hybrid.Logger) (*hybrid.Aligner, *cache.Cache) {
	var remoteClient hybrid.RemoteAligner
	var store *cache.Cache

	if cfg.Remote.Enabled {
		client, err := remote.NewClient(cfg.Remote, logger)
		if err != nil {
			log.Fatalf("remote client: %v", err)
		}
		remoteClient = client

		if cfg.Remote.CacheDB != "" {
			opened, err := cache.Open(cfg.Remote.CacheDB)
			if err != nil {
				log.Fatalf("open cache: %v", err)
			}
			store = opened
		}
	}
	return hybrid.New(cfg, remoteClient, store, logger), store
}

func printSummary(r *report.Report) {
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	fmt.Printf("  sentences: %d\n", r.Global.Count)
	ok.Printf("  aligned:   %d\n", r.Global.Aligned)
	warn.Printf("  warnings:  %d\n", r.Global.Warnings)
	bad.Printf("  failed:    %d\n", r.Global.Unaligned)
	fmt.Printf("  methods:   remote=%d fuzzy=%d\n",
		r.Global.MethodCounts[report.MethodRemote],
		r.Global.MethodCounts[report.MethodFuzzy])
}

func printDetails(r *report.Report) {
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)
	for _, d := range r.Details {
		line := fmt.Sprintf("  #%d [%s/%s] %.2f %s", d.SentenceIndex, d.Status, d.Method, d.Score, d.Text)
		if d.Reason != "" {
			line += " (" + d.Reason + ")"
		}
		switch d.Status {
		case report.StatusFailed:
			bad.Println(line)
		case report.StatusWarning:
			warn.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func countSpans(spans []*transcript.Span) int {
	n := 0
	for _, s := range spans {
		if s != nil {
			n++
		}
	}
	return n
}
