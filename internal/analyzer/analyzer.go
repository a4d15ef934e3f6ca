package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/exclusion"
	"github.com/raysh454/hdrscan/internal/logging"
	"github.com/raysh454/hdrscan/internal/model"
	"github.com/raysh454/hdrscan/internal/results"
)

type Config struct {
	// Workers bounds how many items are loaded and analyzed at once.
	Workers int `json:"workers" yaml:"workers"`
	// ResetBeforeRun clears the results store before each batch.
	ResetBeforeRun bool `json:"reset_before_run" yaml:"reset_before_run"`
}

func DefaultConfig() Config {
	return Config{Workers: 8, ResetBeforeRun: true}
}

// Progress is reported after every processed item.
type Progress struct {
	Done     int    `json:"done"`
	Analyzed int    `json:"analyzed"`
	Excluded int    `json:"excluded"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Last     string `json:"last,omitempty"`
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// Summary describes a finished batch.
type Summary struct {
	Analyzed int           `json:"analyzed"`
	Excluded int           `json:"excluded"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Analyzer evaluates batches of traffic and upserts the results.
type Analyzer struct {
	cfg        Config
	reg        *checks.Registry
	store      results.Store
	exclusions *exclusion.Store
	logger     logging.Logger
}

// New builds an Analyzer. exclusions may be nil, in which case nothing is
// excluded.
func New(cfg Config, reg *checks.Registry, store results.Store, exclusions *exclusion.Store, logger logging.Logger) (*Analyzer, error) {
	if reg == nil {
		return nil, fmt.Errorf("analyzer: registry is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("analyzer: results store is nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Analyzer{
		cfg:        cfg,
		reg:        reg,
		store:      store,
		exclusions: exclusions,
		logger:     logger.With(logging.Field{Key: "component", Value: "analyzer"}),
	}, nil
}

func (a *Analyzer) Registry() *checks.Registry { return a.reg }

type outcome int

const (
	outcomeAnalyzed outcome = iota
	outcomeExcluded
	outcomeSkipped
	outcomeFailed
)

// Run drains src on a bounded pool of workers. Items that fail to load are
// logged and skipped; excluded endpoints are counted but never stored. It
// returns ctx.Err() when the batch was cut short.
func (a *Analyzer) Run(ctx context.Context, src Source, progress ProgressFunc) (Summary, error) {
	start := time.Now()
	if a.cfg.ResetBeforeRun {
		if err := a.store.Clear(ctx); err != nil {
			return Summary{}, fmt.Errorf("reset results: %w", err)
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		prog Progress
	)
	sem := make(chan struct{}, a.cfg.Workers)

	record := func(ref string, o outcome) {
		mu.Lock()
		defer mu.Unlock()
		prog.Done++
		prog.Last = ref
		switch o {
		case outcomeAnalyzed:
			prog.Analyzed++
		case outcomeExcluded:
			prog.Excluded++
		case outcomeSkipped:
			prog.Skipped++
		case outcomeFailed:
			prog.Failed++
		}
		if progress != nil {
			progress(prog)
		}
	}

	// at most Workers items are in flight, counting goroutines
items:
	for it := range src.Items(ctx) {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break items
		}
		wg.Add(1)
		go func(it Item) {
			defer wg.Done()
			defer func() { <-sem }()
			record(it.Ref, a.process(ctx, it))
		}(it)
	}
	wg.Wait()

	mu.Lock()
	sum := Summary{
		Analyzed: prog.Analyzed,
		Excluded: prog.Excluded,
		Skipped:  prog.Skipped,
		Failed:   prog.Failed,
		Duration: time.Since(start),
	}
	mu.Unlock()

	a.logger.Info("batch analysis finished",
		logging.Field{Key: "analyzed", Value: sum.Analyzed},
		logging.Field{Key: "excluded", Value: sum.Excluded},
		logging.Field{Key: "skipped", Value: sum.Skipped},
		logging.Field{Key: "failed", Value: sum.Failed})

	return sum, ctx.Err()
}

func (a *Analyzer) process(ctx context.Context, it Item) outcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}
	if it.Load == nil {
		return outcomeSkipped
	}
	rec, err := it.Load(ctx)
	if err != nil {
		a.logger.Warn("skipping unusable record",
			logging.Field{Key: "ref", Value: it.Ref},
			logging.Field{Key: "error", Value: err})
		return outcomeSkipped
	}
	if a.excluded(rec.Method, rec.URL) {
		return outcomeExcluded
	}
	if err := a.store.Put(ctx, Analyze(a.reg, rec)); err != nil {
		a.logger.Error("error while storing result",
			logging.Field{Key: "key", Value: rec.EndpointKey()},
			logging.Field{Key: "error", Value: err})
		return outcomeFailed
	}
	return outcomeAnalyzed
}

func (a *Analyzer) excluded(method, url string) bool {
	return a.exclusions != nil && a.exclusions.ShouldExclude(method, url)
}

// AnalyzeOne analyzes a single record and stores it unless the endpoint is
// excluded. The entry is returned in both cases.
func (a *Analyzer) AnalyzeOne(ctx context.Context, rec *model.Record) (*results.Entry, bool, error) {
	e := Analyze(a.reg, rec)
	if a.excluded(rec.Method, rec.URL) {
		return e, true, nil
	}
	if err := a.store.Put(ctx, e); err != nil {
		return nil, false, fmt.Errorf("store result: %w", err)
	}
	return e, false, nil
}
