package services

import (
	"context"
	"time"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/metrics"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
	"github.com/stwalsh4118/propsearch/internal/repository"
	"github.com/stwalsh4118/propsearch/internal/search"
)

// historyWriteTimeout bounds how long a history insert may take after a search settles.
const historyWriteTimeout = 5 * time.Second

// RequestBuilder turns search criteria into an upstream request.
type RequestBuilder interface {
	Build(params models.SearchParams, baseURL string, prices *search.PriceMemory) (*search.Request, error)
}

// Executor runs upstream requests and the fixture path.
type Executor interface {
	Execute(ctx context.Context, req *search.Request) (reconcile.Value, error)
	ExecuteFixture(ctx context.Context) (reconcile.Value, error)
}

// Origin identifies who submitted a search. The zero Origin is a one-shot request.
type Origin struct {
	SessionID  string
	Generation uint64
	// Prices is the consumer's price memory. nil means the price fallback is
	// always the configured ceiling.
	Prices *search.PriceMemory
}

// SearchService defines the search pipeline.
type SearchService interface {
	// Search runs one submission end to end: build, execute, reconcile.
	// Returns a *search.BuildError, a *search.ExecutorError or an error wrapping
	// reconcile.ErrNoRecognizedShape on failure. A result with no records is
	// success.
	Search(ctx context.Context, params models.SearchParams, origin Origin) (*reconcile.Result, error)

	// BaseURL returns the upstream base URL searches are sent to.
	BaseURL() string
}

type searchService struct {
	builder    RequestBuilder
	executor   Executor
	reconciler *reconcile.Reconciler
	history    repository.HistoryRepository
	baseURL    string
	log        *logger.Logger
}

// NewSearchService creates a SearchService. history may be nil when search
// history is disabled.
func NewSearchService(
	builder RequestBuilder,
	executor Executor,
	history repository.HistoryRepository,
	baseURL string,
	log *logger.Logger,
) SearchService {
	return &searchService{
		builder:    builder,
		executor:   executor,
		reconciler: reconcile.New(),
		history:    history,
		baseURL:    baseURL,
		log:        log,
	}
}

func (s *searchService) BaseURL() string {
	return s.baseURL
}

func (s *searchService) Search(ctx context.Context, params models.SearchParams, origin Origin) (*reconcile.Result, error) {
	source := metrics.Source(params.UseAPI)
	log := s.log.With(map[string]interface{}{
		"source":     source,
		"session_id": origin.SessionID,
		"submission": origin.Generation,
	})

	start := time.Now()
	metrics.SearchesStarted.WithLabelValues(source).Inc()

	log.Info("Starting property search", map[string]interface{}{
		"city":              params.City,
		"area":              params.Area,
		"max_price":         params.MaxPriceText,
		"property_category": params.PropertyCategory,
		"property_type":     params.PropertyType,
	})

	result, err := s.run(ctx, params, origin.Prices)
	duration := time.Since(start)
	metrics.SearchDuration.WithLabelValues(source).Observe(duration.Seconds())

	s.recordHistory(ctx, params, origin, result, err, duration)

	if err != nil {
		kind := publisher.Classify(err)
		metrics.SearchesFailed.WithLabelValues(source, string(kind)).Inc()
		log.Error("Property search failed", err, map[string]interface{}{
			"error_kind":  kind,
			"duration_ms": duration.Milliseconds(),
		})
		return nil, err
	}

	metrics.SearchesCompleted.WithLabelValues(source, result.Strategy.String()).Inc()
	metrics.RecordsDropped.Add(float64(result.Dropped))

	fields := map[string]interface{}{
		"strategy":    result.Strategy.String(),
		"path":        result.Path,
		"records":     len(result.Records),
		"dropped":     result.Dropped,
		"duration_ms": duration.Milliseconds(),
	}
	if result.Degraded() {
		fields["warning"] = result.Warning.Error()
		log.Warn("Property search recovered records from an unknown response shape", fields)
	} else {
		log.Info("Property search completed", fields)
	}

	return result, nil
}

func (s *searchService) run(ctx context.Context, params models.SearchParams, prices *search.PriceMemory) (*reconcile.Result, error) {
	var (
		payload reconcile.Value
		err     error
	)

	if params.UseAPI {
		req, buildErr := s.builder.Build(params, s.baseURL, prices)
		if buildErr != nil {
			return nil, buildErr
		}
		payload, err = s.executor.Execute(ctx, req)
	} else {
		payload, err = s.executor.ExecuteFixture(ctx)
	}
	if err != nil {
		return nil, err
	}

	return s.reconciler.Reconcile(payload)
}

func (s *searchService) recordHistory(
	ctx context.Context,
	params models.SearchParams,
	origin Origin,
	result *reconcile.Result,
	searchErr error,
	duration time.Duration,
) {
	if s.history == nil {
		return
	}

	entry := &models.SearchHistoryEntry{
		SessionID:        origin.SessionID,
		Generation:       origin.Generation,
		City:             params.City,
		Area:             params.Area,
		MaxPriceText:     params.MaxPriceText,
		PropertyCategory: string(params.PropertyCategory),
		PropertyType:     string(params.PropertyType),
		Source:           metrics.Source(params.UseAPI),
		DurationMs:       duration.Milliseconds(),
	}
	if searchErr != nil {
		entry.State = publisher.StateFailed.String()
		entry.ErrorKind = string(publisher.Classify(searchErr))
	} else {
		entry.State = publisher.StateSucceeded.String()
		entry.Strategy = result.Strategy.String()
		entry.RecordCount = len(result.Records)
		entry.Dropped = result.Dropped
	}

	// The search context may already be cancelled by a teardown.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.history.Record(writeCtx, entry); err != nil {
		s.log.Error("Failed to record search history", err, map[string]interface{}{
			"session_id": origin.SessionID,
			"submission": origin.Generation,
		})
	}
}
