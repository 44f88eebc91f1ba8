package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

// ReconcileFacade exposes the subset of application functionality required by the worker.
type ReconcileFacade interface {
	PendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
	ReconcileOrder(ctx context.Context, order model.Order) (*model.Order, error)
}

// Options tunes the reconciler.
type Options struct {
	Interval  time.Duration
	BatchSize int
	Workers   int
	// MinAge skips orders whose checkout may still be open in the browser.
	MinAge time.Duration
}

// Reconciler periodically re-reads the gateway status of Pending orders
// so that payments whose verification call never arrived are still recorded.
type Reconciler struct {
	facade ReconcileFacade
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs reconciliation worker pool.
func NewReconciler(facade ReconcileFacade, opts Options, logger *slog.Logger) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &Reconciler{
		facade: facade,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		jobs:   make(chan model.Order, opts.BatchSize*opts.Workers),
	}
}

// Enabled reports whether a positive interval was configured.
func (r *Reconciler) Enabled() bool {
	return r.opts.Interval > 0
}

// Start launches background processing. It is a no-op when disabled or already running.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.Enabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *Reconciler) fetchAndDispatch(ctx context.Context) {
	orders, err := r.facade.PendingOrders(ctx, r.now().Add(-r.opts.MinAge), r.opts.BatchSize)
	if err != nil {
		r.logger.Error("fetch pending orders failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- order:
		}
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order := <-r.jobs:
			r.handleOrder(ctx, order)
		}
	}
}

func (r *Reconciler) handleOrder(ctx context.Context, order model.Order) {
	updated, err := r.facade.ReconcileOrder(ctx, order)
	if err != nil {
		var gwErr *domainErrors.GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusTooManyRequests {
			r.logger.Warn("gateway rate limited reconciliation", slog.String("order_id", order.OrderID))
			return
		}
		r.logger.Error("reconcile order failed", slog.String("order_id", order.OrderID), slog.String("error", err.Error()))
		return
	}
	if updated != nil && updated.PaymentStatus != order.PaymentStatus {
		r.logger.Info("order reconciled",
			slog.String("order_id", order.OrderID),
			slog.String("payment_status", string(updated.PaymentStatus)),
		)
	}
}
