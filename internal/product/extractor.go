package product

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"sjsage522/opinionworker/config"
	"sjsage522/opinionworker/internal/crawler"
	"sjsage522/opinionworker/internal/extract"
	"sjsage522/opinionworker/internal/normalizer"
	"sjsage522/opinionworker/internal/opinion"
	"sjsage522/opinionworker/internal/stats"
	"sjsage522/opinionworker/internal/translate"
	"sjsage522/opinionworker/logger"
	"sjsage522/opinionworker/pkg/errors"
	"sjsage522/opinionworker/services/metrics"
)

// Options configures an Extractor
type Options struct {
	StartURL       func(productID string) string
	ReviewSelector string
	NextSelector   string
	NameSelector   string
	Schema         extract.Schema
	Normalizer     normalizer.Options
	Workers        int
	SkipMalformed  bool
}

// OptionsFromConfig builds extractor options from the application configuration
func OptionsFromConfig(cfg *config.Config) Options {
	opts := normalizer.DefaultOptions()
	opts.SourceLang = cfg.SourceLang
	opts.TargetLang = cfg.TargetLang
	opts.RecommendToken = cfg.RecommendToken
	opts.DiscourageToken = cfg.DiscourageToken

	return Options{
		StartURL:       cfg.ProductURL,
		ReviewSelector: cfg.ReviewSelector,
		NextSelector:   cfg.NextSelector,
		NameSelector:   cfg.NameSelector,
		Schema:         extract.DefaultSchema(),
		Normalizer:     opts,
		Workers:        cfg.TranslateWorkers,
		SkipMalformed:  cfg.SkipMalformed,
	}
}

// Result is the outcome of one extraction run. StopReason holds the fetch
// failure that ended pagination early, if any.
type Result struct {
	Product    *Product
	Failures   []Failure
	Pages      int
	StopReason error
}

// ProductExtractor is the entry point used by the worker and the API
type ProductExtractor interface {
	Extract(ctx context.Context, productID string) (*Result, error)
}

// Extractor runs the pipeline: walk pages, extract raw records, normalize, aggregate
type Extractor struct {
	opts       Options
	fetcher    crawler.Fetcher
	translator translate.Translator
}

// NewExtractor creates an extractor
func NewExtractor(fetcher crawler.Fetcher, translator translate.Translator, opts Options) (*Extractor, error) {
	if opts.StartURL == nil {
		return nil, errors.NewConfiguration("start URL builder is required", nil)
	}
	if err := opts.Schema.Validate(); err != nil {
		return nil, errors.NewConfiguration("invalid schema", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	// Fail fast on bad locales; a fresh normalizer is still built per run.
	if _, err := normalizer.New(opts.Normalizer, translator); err != nil {
		return nil, err
	}
	return &Extractor{opts: opts, fetcher: fetcher, translator: translator}, nil
}

type pendingRecord struct {
	page int
	raw  extract.RawRecord
}

// Extract extracts one product. The product id must already be validated.
// When no page could be fetched at all the walk failure is returned as the error.
// With SkipMalformed unset the first record failure is returned as the error,
// alongside the partial result.
func (e *Extractor) Extract(ctx context.Context, productID string) (*Result, error) {
	start := time.Now()
	log := logger.ForProduct(productID)

	result, err := e.extract(ctx, productID, log)
	metrics.ObserveExtraction(err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		return result, err
	}

	log.Info().
		Str("name", result.Product.Name).
		Int("pages", result.Pages).
		Int("opinions", len(result.Product.Opinions)).
		Int("failures", len(result.Failures)).
		Dur("elapsed", time.Since(start)).
		Msg("Extraction finished")
	return result, nil
}

func (e *Extractor) extract(ctx context.Context, productID string, log *logger.Logger) (*Result, error) {
	// The memo lives for this run only.
	norm, err := normalizer.New(e.opts.Normalizer, translate.NewMemo(e.translator))
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var name string
	var pending []pendingRecord

	walker := crawler.NewWalker(e.fetcher, e.opts.ReviewSelector, e.opts.NextSelector, log)
	for batch, err := range walker.Walk(ctx, e.opts.StartURL(productID)) {
		if err != nil {
			result.StopReason = err
			log.Warn().Err(err).Int("pages", result.Pages).Msg("Pagination stopped")
			break
		}
		result.Pages++
		if batch.Index == 0 {
			name = strings.TrimSpace(batch.Doc.Find(e.opts.NameSelector).First().Text())
		}
		batch.Reviews.Each(func(_ int, s *goquery.Selection) {
			pending = append(pending, pendingRecord{page: batch.Index, raw: extract.ExtractRecord(s, e.opts.Schema)})
		})
	}

	if result.Pages == 0 && result.StopReason != nil {
		return result, result.StopReason
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	records, failures, abortErr := e.normalizeAll(ctx, norm, pending)
	result.Failures = failures
	for _, f := range failures {
		event := log.Warn().
			Str("opinion_id", f.RecordID).
			Str("reason", string(f.Reason)).
			Err(f.Err)
		if logger.IsDebugEnabled() {
			if raw, err := json.Marshal(f.raw); err == nil {
				event = event.RawJSON("raw", raw)
			}
		}
		event.Msg("Record rejected")
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Product = &Product{
		ID:       productID,
		Name:     name,
		Opinions: records,
		Stats:    stats.Aggregate(records),
	}
	if !e.opts.SkipMalformed && len(failures) > 0 {
		cause := abortErr
		if cause == nil {
			cause = failures[0].Err
		}
		return result, fmt.Errorf("%d of %d records failed: %w", len(failures), len(pending), cause)
	}
	return result, nil
}

// normalizeAll normalizes records concurrently and keeps the input order.
// Unless malformed records are skipped, the first failure cancels the
// records still pending; they are reported as failures too and the first
// failure is returned as the abort cause.
func (e *Extractor) normalizeAll(ctx context.Context, norm *normalizer.Normalizer, pending []pendingRecord) ([]opinion.Record, []Failure, error) {
	normalized := make([]opinion.Record, len(pending))
	errs := make([]error, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, p := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			normalized[i], errs[i] = norm.Normalize(gctx, p.raw)
			if errs[i] != nil && !e.opts.SkipMalformed {
				return errs[i]
			}
			return nil
		})
	}
	abortErr := g.Wait()

	records := make([]opinion.Record, 0, len(pending))
	var failures []Failure
	for i, p := range pending {
		if errs[i] == nil {
			records = append(records, normalized[i])
			metrics.ObserveRecord("ok")
			continue
		}
		reason := errors.TypeOf(errs[i])
		if reason == "" {
			reason = "other"
		}
		metrics.ObserveRecord(string(reason))
		failures = append(failures, Failure{
			RecordID: p.raw.Text(extract.FieldID),
			Page:     p.page,
			Reason:   reason,
			Err:      errs[i],
			raw:      p.raw,
		})
	}
	return records, failures, abortErr
}
