// Package settlement waits for submitted transactions to reach a terminal state on
// the gateway.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/vitwit/circular/clients"
	"github.com/vitwit/circular/logger"
	"github.com/vitwit/circular/metrics"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
	"k8s.io/utils/clock"
)

// Awaiter interface defines the contract for outcome polling
type Awaiter interface {
	AwaitOutcome(ctx context.Context, blockchain, txID string, timeout time.Duration) (*types.Outcome, error)
}

// OutcomeResult is delivered by Watch
type OutcomeResult struct {
	Outcome *types.Outcome
	Err     error
}

// OutcomeWatcher polls Circular_GetTransactionbyID_ until a transaction is final
type OutcomeWatcher struct {
	querier  clients.Querier
	interval time.Duration
	clock    clock.Clock
	logger   logger.Logger
	metrics  metrics.Recorder
}

var _ Awaiter = (*OutcomeWatcher)(nil)

type WatcherOption func(*OutcomeWatcher)

// WithInterval sets the wait between polls
func WithInterval(d time.Duration) WatcherOption {
	return func(w *OutcomeWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithClock sets the clock used for deadlines and waits
func WithClock(c clock.Clock) WatcherOption {
	return func(w *OutcomeWatcher) {
		w.clock = c
	}
}

func WithLogger(l logger.Logger) WatcherOption {
	return func(w *OutcomeWatcher) {
		w.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) WatcherOption {
	return func(w *OutcomeWatcher) {
		w.metrics = metrics.OrNoop(r)
	}
}

// NewOutcomeWatcher creates a watcher polling through q
func NewOutcomeWatcher(q clients.Querier, opts ...WatcherOption) *OutcomeWatcher {
	w := &OutcomeWatcher{
		querier:  q,
		interval: types.DefaultConfig().PollInterval,
		clock:    clock.RealClock{},
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AwaitOutcome polls until the transaction is confirmed or rejected.
//
// The deadline is checked before every poll, so the last poll can happen up to one
// interval before the timeout error is returned. A response that is not yet final
// (not found, pending, or a non-200 Result) schedules another poll. A transport or
// decoding error ends the wait immediately. A malformed blockchain or transaction ID
// fails with a FormatError before the first poll.
func (w *OutcomeWatcher) AwaitOutcome(
	ctx context.Context,
	blockchain, txID string,
	timeout time.Duration,
) (*types.Outcome, error) {
	blockchain = utils.HexFix(blockchain)
	txID = utils.HexFix(txID)
	if err := utils.ValidateBlockchain(blockchain); err != nil {
		return nil, err
	}
	if err := utils.ValidateTransactionID(txID); err != nil {
		return nil, err
	}

	start := w.clock.Now()
	polls := 0
	fields := map[string]any{
		"Blockchain": blockchain,
		"ID":         txID,
		"Start":      "0",
		"End":        "10",
	}

	for {
		elapsed := w.clock.Since(start)
		if elapsed > timeout {
			w.record("timeout", elapsed)
			w.logger.Warn("transaction outcome timed out", map[string]any{
				"txId":    txID,
				"polls":   polls,
				"elapsed": elapsed.String(),
			})
			return nil, types.NewTimeoutError(fmt.Sprintf("transaction %s not final after %s", txID, timeout))
		}

		resp, err := w.querier.Query(ctx, types.OpGetTransactionByID, fields)
		polls++
		if err != nil {
			w.record("error", w.clock.Since(start))
			return nil, err
		}
		if resp == nil {
			w.record("error", w.clock.Since(start))
			return nil, types.NewFormatError(fmt.Sprintf("no response polling transaction %s", txID), nil)
		}

		state := types.StateOf(resp)
		w.metrics.IncCounter(metrics.OutcomePoll, map[string]string{
			"operation": types.OpGetTransactionByID.String(),
			"state":     state.String(),
		})
		w.logger.Debug("transaction outcome polled", map[string]any{
			"txId":   txID,
			"poll":   polls,
			"state":  state.String(),
			"result": resp.Result,
		})

		if state.IsTerminal() {
			elapsed = w.clock.Since(start)
			w.record(state.String(), elapsed)
			return &types.Outcome{
				TxID:       txID,
				Blockchain: blockchain,
				State:      state,
				Status:     resp.Status(),
				Response:   resp.Response,
				Polls:      polls,
				Elapsed:    elapsed,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-w.clock.After(w.interval):
		}
	}
}

// Watch runs AwaitOutcome in the background. The channel receives one result and is
// then closed.
func (w *OutcomeWatcher) Watch(
	ctx context.Context,
	blockchain, txID string,
	timeout time.Duration,
) <-chan OutcomeResult {
	out := make(chan OutcomeResult, 1)
	go func() {
		defer close(out)
		outcome, err := w.AwaitOutcome(ctx, blockchain, txID, timeout)
		out <- OutcomeResult{Outcome: outcome, Err: err}
	}()
	return out
}

// BatchAwait waits on multiple transactions concurrently. Results are returned in
// the order of txIDs; individual failures are recorded in the result objects.
func (w *OutcomeWatcher) BatchAwait(
	ctx context.Context,
	blockchain string,
	txIDs []string,
	timeout time.Duration,
) ([]OutcomeResult, error) {
	results := make([]OutcomeResult, len(txIDs))

	type awaitResult struct {
		index  int
		result OutcomeResult
	}

	resultChan := make(chan awaitResult, len(txIDs))

	for i, id := range txIDs {
		go func(index int, txID string) {
			outcome, err := w.AwaitOutcome(ctx, blockchain, txID, timeout)
			resultChan <- awaitResult{
				index:  index,
				result: OutcomeResult{Outcome: outcome, Err: err},
			}
		}(i, id)
	}

	for i := 0; i < len(txIDs); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultChan:
			results[res.index] = res.result
		}
	}

	return results, nil
}

func (w *OutcomeWatcher) record(label string, elapsed time.Duration) {
	w.metrics.IncCounter(metrics.OutcomeResult, map[string]string{
		"operation": types.OpGetTransactionByID.String(),
		"state":     label,
	})
	w.metrics.ObserveLatency(metrics.OutcomeWait, elapsed, map[string]string{
		"operation": types.OpGetTransactionByID.String(),
	})
}
