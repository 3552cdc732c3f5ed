package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	mevapp "github.com/fd1az/arbitrage-bot/business/mev/app"
	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/pipeline/app"
	meterName  = "github.com/fd1az/arbitrage-bot/business/pipeline/app"

	// workBudget bounds how many scheduler-tick iterations Run performs
	// before yielding, per §4.4's fairness invariant.
	workBudget = 256

	// inspectorConcurrency caps the data-parallel worker pool §5 calls for
	// when fanning inspectors out over one tuple.
	inspectorConcurrency = 8
)

// executorMetrics holds OTEL metric instruments for the range executor.
type executorMetrics struct {
	blocksEmitted   metric.Int64Counter
	bundlesInserted metric.Int64Counter
	insertionErrors metric.Int64Counter
	inFlightGauge   metric.Int64UpDownCounter
}

// RangeExecutor drives a half-open block range through collection,
// inspection and persistence (C9), with the shutdown semantics of §5:
// stop starting new collector work, but await every in-flight insertion
// before returning.
type RangeExecutor struct {
	collector  *StateCollector
	inspectors []mevapp.Inspector
	sink       PersistenceSink
	logger     logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics

	wg      sync.WaitGroup
	inFlight int64
}

// NewRangeExecutor builds an executor over collector, fanning each
// collected tuple out to inspectors and handing emitted bundles to sink.
func NewRangeExecutor(collector *StateCollector, inspectors []mevapp.Inspector, sink PersistenceSink, log logger.LoggerInterface) (*RangeExecutor, error) {
	e := &RangeExecutor{
		collector:  collector,
		inspectors: inspectors,
		sink:       sink,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *RangeExecutor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}
	if e.metrics.blocksEmitted, err = meter.Int64Counter("pipeline.blocks_emitted"); err != nil {
		return err
	}
	if e.metrics.bundlesInserted, err = meter.Int64Counter("pipeline.bundles_inserted"); err != nil {
		return err
	}
	if e.metrics.insertionErrors, err = meter.Int64Counter("pipeline.insertion_errors"); err != nil {
		return err
	}
	if e.metrics.inFlightGauge, err = meter.Int64UpDownCounter("pipeline.insertions_in_flight"); err != nil {
		return err
	}
	return nil
}

// Run drives the executor to completion: it returns once range_finished
// has been signaled to the collector and every tuple it emitted has been
// inspected and persisted, or once shutdown fires and the in-flight
// insertion set has drained.
//
// ctx cancellation reaches the collector's trace fetches (cooperative, not
// forced); shutdown additionally stops the executor from starting new
// collector work while letting in-flight insertions run to completion —
// §5's "no forced abort of insertions".
func (e *RangeExecutor) Run(ctx context.Context, shutdown <-chan struct{}) error {
	shuttingDown := false

	for {
		select {
		case <-shutdown:
			shuttingDown = true
		default:
		}

		for i := 0; i < workBudget; i++ {
			if !shuttingDown && e.collector.ShouldProcessNextBlock() {
				e.collector.FetchStateFor(ctx)
			}

			result, tuple := e.collector.PollNext()
			switch result {
			case PollReady:
				e.spawnInsertion(ctx, tuple)
				if e.metrics.blocksEmitted != nil {
					e.metrics.blocksEmitted.Add(ctx, 1)
				}
			case PollFinished:
				e.wg.Wait()
				return nil
			}

			if !shuttingDown && !e.collector.IsCollectingState() && !e.collector.ShouldProcessNextBlock() &&
				atomic.LoadInt64(&e.inFlight) == 0 {
				e.collector.RangeFinished()
			}

			select {
			case <-shutdown:
				shuttingDown = true
			default:
			}
		}

		if shuttingDown {
			e.wg.Wait()
			return nil
		}

		// Yield to the runtime between ticks rather than busy-spinning
		// while the collector's fetch is in flight.
		time.Sleep(time.Millisecond)
	}
}

// spawnInsertion launches process_results(tree, metadata) as an unbounded
// in-flight task (§4.4's insert futures): fan the tuple's actions out to
// every inspector concurrently, then persist whatever bundles result.
func (e *RangeExecutor) spawnInsertion(ctx context.Context, tuple Tuple) {
	atomic.AddInt64(&e.inFlight, 1)
	if e.metrics.inFlightGauge != nil {
		e.metrics.inFlightGauge.Add(ctx, 1)
	}
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer atomic.AddInt64(&e.inFlight, -1)
		defer func() {
			if e.metrics.inFlightGauge != nil {
				e.metrics.inFlightGauge.Add(ctx, -1)
			}
		}()
		e.processResults(ctx, tuple)
	}()
}

func (e *RangeExecutor) processResults(ctx context.Context, tuple Tuple) {
	ctx, span := e.tracer.Start(ctx, "pipeline.process_results",
		trace.WithAttributes(attribute.Int64("block_number", int64(tuple.BlockNumber))))
	defer span.End()

	results := make([][]domain.Bundle, len(e.inspectors))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(inspectorConcurrency)
	for idx := range e.inspectors {
		i := idx
		g.Go(func() error {
			results[i] = e.inspectors[i].ProcessTree(tuple.Tree, tuple.Metadata)
			return nil
		})
	}
	_ = g.Wait() // inspectors are pure and never return an error

	var bundles []domain.Bundle
	for _, r := range results {
		bundles = append(bundles, r...)
	}
	if len(bundles) == 0 {
		return
	}

	if err := e.sink.Insert(ctx, tuple.BlockNumber, bundles); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if e.metrics.insertionErrors != nil {
			e.metrics.insertionErrors.Add(ctx, 1)
		}
		if e.logger != nil {
			// §4.8: log, do not retry — the sink is idempotent by primary key.
			e.logger.Error(ctx, "pipeline: insertion failed", "block", tuple.BlockNumber, "error", err)
		}
		return
	}
	if e.metrics.bundlesInserted != nil {
		e.metrics.bundlesInserted.Add(ctx, int64(len(bundles)))
	}
}
