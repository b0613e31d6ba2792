package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"sjsage522/opinionworker/helpers"
	"sjsage522/opinionworker/internal/product"
	"sjsage522/opinionworker/internal/stats"
	"sjsage522/opinionworker/logger"
	"sjsage522/opinionworker/pkg/errors"
	"sjsage522/opinionworker/services/publisher"
)

// Store persists extracted products
type Store interface {
	Save(p *product.Product) error
}

// Notification is the message published after a product was extracted
type Notification struct {
	ProductID   string            `json:"product_id"`
	Name        string            `json:"product_name"`
	Stats       stats.Summary     `json:"stats"`
	Failures    []product.Failure `json:"failures,omitempty"`
	Partial     bool              `json:"partial"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// Worker periodically extracts a fixed list of products
type Worker struct {
	ctx           context.Context
	extractor     product.ProductExtractor
	store         Store
	publisher     publisher.Publisher
	logger        *logger.Logger
	productIDs    []string
	crawlInterval time.Duration
	runTimeout    time.Duration
	retries       int
	retryDelay    time.Duration
}

// NewWorker creates a new worker. runTimeout bounds a single product run; zero disables it.
func NewWorker(
	ctx context.Context,
	extractor product.ProductExtractor,
	store Store,
	pub publisher.Publisher,
	log *logger.Logger,
	productIDs []string,
	crawlInterval time.Duration,
	runTimeout time.Duration,
) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		ctx:           ctx,
		extractor:     extractor,
		store:         store,
		publisher:     pub,
		logger:        log,
		productIDs:    productIDs,
		crawlInterval: crawlInterval,
		runTimeout:    runTimeout,
	}
}

// WithRetry makes the worker retry a product up to attempts more times when
// its run failed with a retryable error before any page was fetched
func (w *Worker) WithRetry(attempts int, delay time.Duration) *Worker {
	w.retries = attempts
	w.retryDelay = delay
	return w
}

// Start runs a round immediately and then every crawl interval until the context is done
func (w *Worker) Start() error {
	ticker := time.NewTicker(w.crawlInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		w.RunOnce()
		w.logger.Info().Dur("elapsed", time.Since(start)).Msg("Extraction round finished")

		select {
		case <-w.ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce extracts every configured product in parallel, then trims the streams
func (w *Worker) RunOnce() {
	var wg sync.WaitGroup
	for _, id := range w.productIDs {
		if err := helpers.ValidateProductID(id); err != nil {
			w.logger.Error().Err(err).Msg("Skipping product")
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w.extractAndPublish(id)
		}(id)
	}
	wg.Wait()

	if w.publisher == nil {
		return
	}
	if err := w.publisher.TrimStreams(); err != nil {
		w.logger.Error().Err(err).Msg("Stream trimming failed")
	}
}

// extractAndPublish extracts one product, stores it and publishes a notification
func (w *Worker) extractAndPublish(id string) {
	log := w.logger.WithField("product_id", id)

	ctx := w.ctx
	if w.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(w.ctx, w.runTimeout)
		defer cancel()
	}

	result, err := w.extract(ctx, id, log)
	if err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		return
	}

	if err := w.store.Save(result.Product); err != nil {
		log.Error().Err(err).Msg("Saving product failed")
		return
	}

	if w.publisher == nil {
		return
	}
	data, err := json.Marshal(Notification{
		ProductID:   result.Product.ID,
		Name:        result.Product.Name,
		Stats:       result.Product.Stats,
		Failures:    result.Failures,
		Partial:     result.StopReason != nil,
		ExtractedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Encoding notification failed")
		return
	}
	if err := w.publisher.Publish("product", data); err != nil {
		log.Error().Err(err).Msg("Publishing failed")
		return
	}
	log.Debug().Int("opinions", result.Product.Stats.OpinionsCount).Msg("Published product")
}

// extract runs one product, retrying transient failures of the first page
func (w *Worker) extract(ctx context.Context, id string, log *logger.Logger) (*product.Result, error) {
	for attempt := 0; ; attempt++ {
		result, err := w.extractor.Extract(ctx, id)
		if err == nil || attempt >= w.retries || !retryable(result, err) {
			return result, err
		}
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", w.retryDelay).
			Msg("Extraction failed, retrying")

		select {
		case <-ctx.Done():
			return result, err
		case <-time.After(w.retryDelay):
		}
	}
}

// retryable reports whether err is a retryable failure that happened before any page was fetched
func retryable(result *product.Result, err error) bool {
	if result != nil && result.Pages > 0 {
		return false
	}
	var extractionErr *errors.ExtractionError
	return stderrors.As(err, &extractionErr) && extractionErr.IsRetryable()
}
