// internal/dispatcher/dispatcher.go
// Payment orchestration: validate, screen, price, dispatch to the rail
// adapter, record every state transition, and optionally route instant
// settlement.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/hookz"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/fees"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/ledger"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/risk"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/validator"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const (
	defaultPollInterval   = 5 * time.Second
	defaultTransactionTTL = time.Hour
	evictInterval         = time.Minute
)

// SettlementRouter moves completed funds to a recipient. Implemented by
// the settlement package.
type SettlementRouter interface {
	Route(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor) (*models.SettlementRecord, error)
}

// Config carries the dispatcher's collaborators.
type Config struct {
	Validator *validator.Validator
	Assessor  risk.Assessor
	Fees      *fees.Calculator
	Registry  *provider.Registry
	Ledger    ledger.Ledger
	Verifier  *signing.Verifier
	Cache     IdempotencyCache // optional
	Settler   SettlementRouter // optional
	Logger    *zap.Logger

	PollInterval   time.Duration
	TransactionTTL time.Duration
}

// Dispatcher owns each Transaction for the duration of its processing
// task. A per-transaction mutex serializes outcome application, so the
// synchronous dispatch path, duplicate callbacks and poll results for
// the same id never interleave. d.mu guards the working-copy maps and
// individual field writes read concurrently by CheckStatus.
type Dispatcher struct {
	cfg   Config
	hooks *hookz.Hooks[TransactionEvent]

	mu          sync.Mutex
	inflight    map[string]*models.Transaction
	txLocks     map[string]*sync.Mutex
	pollCancels map[string]context.CancelFunc
	done        chan struct{}
}

func New(cfg Config) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.TransactionTTL <= 0 {
		cfg.TransactionTTL = defaultTransactionTTL
	}
	d := &Dispatcher{
		cfg:         cfg,
		hooks:       hookz.New[TransactionEvent](hookz.WithWorkers(4)),
		inflight:    make(map[string]*models.Transaction),
		txLocks:     make(map[string]*sync.Mutex),
		pollCancels: make(map[string]context.CancelFunc),
		done:        make(chan struct{}),
	}
	go d.janitor()
	return d
}

// Events exposes the lifecycle hook surface for subscribers.
func (d *Dispatcher) Events() *hookz.Hooks[TransactionEvent] {
	return d.hooks
}

// Close stops event workers and the eviction task. In-flight pollers
// stop at terminal status or expiry on their own.
func (d *Dispatcher) Close() error {
	close(d.done)
	return d.hooks.Close()
}

// ProcessPayment runs a request through the full state machine. It is
// synchronous up to provider dispatch and may return a transaction in
// PENDING or PENDING_3DS without blocking for final settlement.
func (d *Dispatcher) ProcessPayment(ctx context.Context, req *models.PaymentRequest) (*models.Transaction, error) {
	if req.IdempotencyKey != "" && d.cfg.Cache != nil {
		if cached, ok := d.cfg.Cache.Get(ctx, req.IdempotencyKey); ok {
			return d.replay(ctx, cached)
		}
	}

	if result := d.cfg.Validator.Validate(req); !result.Valid {
		return nil, &models.ValidationError{Errors: result.Errors}
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:        uuid.New().String(),
		Request:   *req,
		Status:    models.StatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(d.cfg.TransactionTTL),
	}
	if req.Method == models.MethodCard && req.Card != nil {
		tx.CardNetwork = validator.DetectCardNetwork(req.Card.Number)
	}
	d.track(tx)
	d.append(ctx, tx.ID, "", models.StatusInitiated, nil)

	// Risk screening runs before any provider contact; this ordering is
	// a hard contract, not an optimization.
	assessment := d.cfg.Assessor.Assess(ctx, req)
	d.update(tx, func() { tx.Risk = &assessment })
	d.transition(ctx, tx, models.StatusRiskChecked, map[string]string{
		"risk_score": fmt.Sprintf("%d", assessment.Score),
	})

	if assessment.Fraudulent {
		d.update(tx, func() {
			tx.ErrorCode = "FRAUD_DETECTED"
			tx.ErrorMessage = "transaction rejected by risk screening"
		})
		d.transition(ctx, tx, models.StatusRejected, map[string]string{"reason": assessment.ReasonCode})
		d.emit(EventPaymentRejected, tx)
		paymentsTotal.WithLabelValues(string(req.Method), string(models.StatusRejected)).Inc()
		d.snapshot(ctx, tx)
		return tx, nil
	}

	// Fees are computed before provider execution and kept regardless of
	// outcome, so failed-but-attempted payments retain a quote.
	breakdown := d.cfg.Fees.Calculate(req.Amount, req.Currency, req.Method, req.Country, req.MerchantTier)
	d.update(tx, func() { tx.Fees = &breakdown })

	adapter, ok := d.cfg.Registry.ForMethod(req.Method)
	if !ok {
		return nil, &models.ValidationError{Errors: []string{fmt.Sprintf("no adapter registered for method %s", req.Method)}}
	}

	d.transition(ctx, tx, models.StatusProviderDispatched, map[string]string{"rail": adapter.Rail()})
	result := d.executeProvider(ctx, adapter, tx)
	d.applyOutcome(ctx, tx, adapter, result)

	d.snapshot(ctx, tx)
	paymentsTotal.WithLabelValues(string(req.Method), string(d.currentStatus(tx))).Inc()
	return tx, nil
}

// replay serves an idempotent re-submission. Retryable failures are
// re-dispatched under the original transaction id; anything else returns
// the cached outcome unchanged.
func (d *Dispatcher) replay(ctx context.Context, cached *models.Transaction) (*models.Transaction, error) {
	tx := d.lookup(cached.ID)
	if tx == nil {
		tx = cached
		d.track(tx)
	}

	d.mu.Lock()
	retryable := tx.Status == models.StatusTimeout ||
		(tx.Status == models.StatusFailed && tx.Provider != nil && tx.Provider.Retryable)
	d.mu.Unlock()
	if !retryable {
		return tx, nil
	}

	adapter, ok := d.cfg.Registry.ForMethod(tx.Request.Method)
	if !ok {
		return tx, nil
	}

	d.transition(ctx, tx, models.StatusProviderDispatched, map[string]string{"retry": "true"})
	result := d.executeProvider(ctx, adapter, tx)
	d.applyOutcome(ctx, tx, adapter, result)
	d.snapshot(ctx, tx)
	return tx, nil
}

// CheckStatus returns a point-in-time copy of the in-flight working
// copy, safe to serialize while the transaction keeps moving.
func (d *Dispatcher) CheckStatus(_ context.Context, txID string) (*models.Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx, ok := d.inflight[txID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	snapshot := *tx
	return &snapshot, nil
}

// ConfirmPayment resumes a PENDING_3DS transaction after the customer
// completed step-up authentication.
func (d *Dispatcher) ConfirmPayment(ctx context.Context, txID string) (*models.Transaction, error) {
	tx := d.lookup(txID)
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	if status := d.currentStatus(tx); status != models.StatusPending3DS {
		return nil, fmt.Errorf("transaction %s is %s, not awaiting authentication", txID, status)
	}

	adapter, ok := d.cfg.Registry.ForMethod(tx.Request.Method)
	if !ok {
		return nil, fmt.Errorf("no adapter registered for method %s", tx.Request.Method)
	}
	confirmer, ok := adapter.(provider.Confirmer)
	if !ok {
		return nil, fmt.Errorf("rail %s does not support confirmation", adapter.Rail())
	}

	result := confirmer.Confirm(ctx, tx)
	d.applyOutcome(ctx, tx, adapter, result)
	d.snapshot(ctx, tx)
	return tx, nil
}

// CancelPayment cancels a transaction still awaiting provider or
// customer action.
func (d *Dispatcher) CancelPayment(ctx context.Context, txID string) (*models.Transaction, error) {
	tx := d.lookup(txID)
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	lock := d.lockFor(txID)
	lock.Lock()
	defer lock.Unlock()

	if status := d.currentStatus(tx); status != models.StatusPending && status != models.StatusPending3DS {
		return nil, fmt.Errorf("transaction %s cannot be cancelled from %s", txID, status)
	}

	d.transition(ctx, tx, models.StatusCancelled, nil)
	d.snapshot(ctx, tx)
	return tx, nil
}

// HandleProviderCallback verifies and applies an asynchronous provider
// callback. Unverified callbacks are ignored; they never move a
// transaction to COMPLETED.
func (d *Dispatcher) HandleProviderCallback(ctx context.Context, providerName, signature string, payload []byte) error {
	if !d.cfg.Verifier.Verify(providerName, signature, payload) {
		callbacksTotal.WithLabelValues(providerName, "rejected").Inc()
		d.cfg.Logger.Warn("discarding callback with invalid signature",
			zap.String("provider", providerName))
		return &models.CallbackVerificationError{Provider: providerName}
	}

	adapter, ok := d.cfg.Registry.ForProvider(providerName)
	if !ok {
		callbacksTotal.WithLabelValues(providerName, "unroutable").Inc()
		return fmt.Errorf("no adapter registered for provider %s", providerName)
	}
	mapper, ok := adapter.(provider.CallbackMapper)
	if !ok {
		return fmt.Errorf("rail %s does not accept callbacks", adapter.Rail())
	}

	var envelope struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.TransactionID == "" {
		callbacksTotal.WithLabelValues(providerName, "malformed").Inc()
		return fmt.Errorf("callback payload missing transactionId")
	}

	status, reference, err := mapper.MapCallback(payload)
	if err != nil {
		callbacksTotal.WithLabelValues(providerName, "malformed").Inc()
		return err
	}

	tx := d.lookup(envelope.TransactionID)
	if tx == nil {
		callbacksTotal.WithLabelValues(providerName, "unknown_transaction").Inc()
		return ErrTransactionNotFound
	}
	if d.currentStatus(tx).Terminal() {
		callbacksTotal.WithLabelValues(providerName, "ignored_terminal").Inc()
		return nil
	}

	callbacksTotal.WithLabelValues(providerName, "accepted").Inc()
	d.applyAsyncStatus(ctx, tx, status, reference)
	return nil
}

// executeProvider issues the adapter call decoupled from caller
// cancellation. If the caller goes away the in-flight call is allowed to
// complete and its eventual result is written to the ledger as a late
// update, since provider-side effects cannot be un-sent.
func (d *Dispatcher) executeProvider(ctx context.Context, adapter provider.Adapter, tx *models.Transaction) *models.ProviderResult {
	resultCh := make(chan *models.ProviderResult, 1)
	callCtx := context.WithoutCancel(ctx)
	start := time.Now()

	go func() {
		resultCh <- adapter.Execute(callCtx, tx)
	}()

	select {
	case result := <-resultCh:
		providerLatency.WithLabelValues(adapter.Rail()).Observe(time.Since(start).Seconds())
		return result
	case <-ctx.Done():
		go func() {
			result := <-resultCh
			providerLatency.WithLabelValues(adapter.Rail()).Observe(time.Since(start).Seconds())
			d.append(context.Background(), tx.ID, d.currentStatus(tx), result.Status, map[string]string{
				"late_update": "true",
				"reference":   result.Reference,
			})
		}()
		return &models.ProviderResult{
			Success:      false,
			Status:       models.StatusPending,
			ErrorCode:    "CALLER_CANCELLED",
			ErrorMessage: "caller disconnected while awaiting provider",
		}
	}
}

// applyOutcome folds a ProviderResult into the state machine, under the
// per-transaction lock. A callback that completed the transaction while
// the synchronous call was in flight wins; the stale result is dropped.
func (d *Dispatcher) applyOutcome(ctx context.Context, tx *models.Transaction, adapter provider.Adapter, result *models.ProviderResult) {
	lock := d.lockFor(tx.ID)
	lock.Lock()
	defer lock.Unlock()

	if d.currentStatus(tx).Terminal() {
		return
	}

	d.update(tx, func() { tx.Provider = result })

	switch {
	case result.RequiresAction:
		d.transition(ctx, tx, models.StatusPending3DS, map[string]string{"reference": result.Reference})

	case result.Status == models.StatusCompleted:
		d.transition(ctx, tx, models.StatusCompleted, map[string]string{"reference": result.Reference})
		d.emit(EventPaymentCompleted, tx)
		d.maybeSettle(ctx, tx)

	case result.Status == models.StatusPending:
		d.transition(ctx, tx, models.StatusPending, map[string]string{"reference": result.Reference})
		if poller, ok := adapter.(provider.StatusPoller); ok {
			d.startPolling(tx, poller)
		}

	case result.Status == models.StatusTimeout:
		d.update(tx, func() {
			tx.ErrorCode = result.ErrorCode
			tx.ErrorMessage = result.ErrorMessage
		})
		d.transition(ctx, tx, models.StatusTimeout, nil)

	default:
		d.update(tx, func() {
			tx.ErrorCode = result.ErrorCode
			tx.ErrorMessage = result.ErrorMessage
		})
		d.transition(ctx, tx, models.StatusFailed, map[string]string{"error_code": result.ErrorCode})
		d.emit(EventPaymentFailed, tx)
	}
}

// applyAsyncStatus applies a verified callback or poll result arriving
// after the synchronous dispatch finished. The per-transaction lock makes
// the terminal check and the transition one atomic step, so concurrent
// duplicate deliveries collapse to a single transition and a single
// settlement.
func (d *Dispatcher) applyAsyncStatus(ctx context.Context, tx *models.Transaction, status models.TransactionStatus, reference string) {
	lock := d.lockFor(tx.ID)
	lock.Lock()
	defer lock.Unlock()

	if d.currentStatus(tx).Terminal() {
		return
	}

	d.update(tx, func() {
		if tx.Provider != nil && reference != "" {
			tx.Provider.Reference = reference
		}
	})

	switch status {
	case models.StatusCompleted:
		d.update(tx, func() {
			if tx.Provider != nil {
				tx.Provider.Success = true
				tx.Provider.Status = models.StatusCompleted
			}
		})
		d.transition(ctx, tx, models.StatusCompleted, map[string]string{"reference": reference})
		d.emit(EventPaymentCompleted, tx)
		d.maybeSettle(ctx, tx)
	case models.StatusFailed, models.StatusRejected:
		d.transition(ctx, tx, models.StatusFailed, map[string]string{"reference": reference})
		d.emit(EventPaymentFailed, tx)
	case models.StatusExpired:
		d.transition(ctx, tx, models.StatusExpired, nil)
	default:
		// PENDING and unknown statuses leave the state machine alone.
	}
	d.snapshot(ctx, tx)
}

// maybeSettle runs the optional instant settlement leg at most once per
// transaction; callers hold the per-transaction lock. Settlement failure
// never reverses the completed payment.
func (d *Dispatcher) maybeSettle(ctx context.Context, tx *models.Transaction) {
	if !tx.Request.InstantSettlement || d.cfg.Settler == nil {
		return
	}
	d.mu.Lock()
	settled := tx.Settlement != nil
	d.mu.Unlock()
	if settled {
		return
	}

	d.transition(ctx, tx, models.StatusSettlementPending, nil)
	record, err := d.cfg.Settler.Route(ctx, tx, tx.Request.Recipient)
	if err != nil {
		d.cfg.Logger.Error("instant settlement failed",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		if record != nil {
			d.update(tx, func() { tx.Settlement = record })
		}
		d.transition(ctx, tx, models.StatusSettlementFailed, nil)
		d.emit(EventSettlementFailed, tx)
		settlementsTotal.WithLabelValues(channelLabel(record), "failed").Inc()
		return
	}

	d.update(tx, func() { tx.Settlement = record })
	d.transition(ctx, tx, models.StatusSettlementCompleted, map[string]string{
		"channel":   string(record.Channel),
		"reference": record.Reference,
	})
	d.emit(EventSettlementCompleted, tx)
	settlementsTotal.WithLabelValues(string(record.Channel), "completed").Inc()
}

// startPolling spawns the per-transaction status poll task. It stops at
// the first terminal status or at the expiry timestamp, whichever comes
// first; it never runs indefinitely.
func (d *Dispatcher) startPolling(tx *models.Transaction, poller provider.StatusPoller) {
	pollCtx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	if _, exists := d.pollCancels[tx.ID]; exists {
		d.mu.Unlock()
		cancel()
		return
	}
	d.pollCancels[tx.ID] = cancel
	d.mu.Unlock()

	go func() {
		defer d.stopPolling(tx.ID)
		ticker := time.NewTicker(d.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				if time.Now().After(tx.ExpiresAt) {
					d.applyAsyncStatus(pollCtx, tx, models.StatusExpired, "")
					return
				}

				result := poller.Poll(pollCtx, tx)
				if result.Status == models.StatusPending || result.Status == models.StatusTimeout {
					continue
				}
				d.applyAsyncStatus(pollCtx, tx, result.Status, result.Reference)
				if d.currentStatus(tx).Terminal() {
					return
				}
			}
		}
	}()
}

func (d *Dispatcher) stopPolling(txID string) {
	d.mu.Lock()
	cancel, ok := d.pollCancels[txID]
	delete(d.pollCancels, txID)
	d.mu.Unlock()
	if ok {
		cancel()
	}
}

// janitor drops expired terminal working copies so the in-flight map
// stays bounded on a long-running server.
func (d *Dispatcher) janitor() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.evictExpired(time.Now())
		}
	}
}

// evictExpired removes terminal transactions past their expiry. Lookups
// for recently finished transactions keep working until the TTL elapses;
// non-terminal transactions are never evicted here (the poll task moves
// them to EXPIRED first).
func (d *Dispatcher) evictExpired(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, tx := range d.inflight {
		if tx.Status.Terminal() && now.After(tx.ExpiresAt) {
			delete(d.inflight, id)
			delete(d.txLocks, id)
		}
	}
}

// transition applies a state change and records it. A ledger failure is
// itself logged and swallowed: it must never surface as payment failure
// once the provider call succeeded.
func (d *Dispatcher) transition(ctx context.Context, tx *models.Transaction, to models.TransactionStatus, metadata map[string]string) {
	d.mu.Lock()
	from := tx.Status
	tx.Status = to
	tx.UpdatedAt = time.Now()
	d.mu.Unlock()

	d.append(ctx, tx.ID, from, to, metadata)

	if to.Terminal() {
		d.stopPolling(tx.ID)
	}
}

func (d *Dispatcher) append(ctx context.Context, txID string, from, to models.TransactionStatus, metadata map[string]string) {
	if err := d.cfg.Ledger.Append(ctx, txID, from, to, metadata); err != nil {
		d.cfg.Logger.Error("ledger append failed",
			zap.String("transaction_id", txID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

func (d *Dispatcher) emit(key hookz.Key, tx *models.Transaction) {
	if err := d.hooks.Emit(context.Background(), key, eventFor(tx)); err != nil {
		d.cfg.Logger.Debug("event emission skipped", zap.String("event", string(key)), zap.Error(err))
	}
}

func (d *Dispatcher) snapshot(ctx context.Context, tx *models.Transaction) {
	if tx.Request.IdempotencyKey != "" && d.cfg.Cache != nil {
		d.cfg.Cache.Set(ctx, tx.Request.IdempotencyKey, tx)
	}
}

func (d *Dispatcher) track(tx *models.Transaction) {
	d.mu.Lock()
	d.inflight[tx.ID] = tx
	d.mu.Unlock()
}

func (d *Dispatcher) lookup(txID string) *models.Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight[txID]
}

func (d *Dispatcher) lockFor(txID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.txLocks[txID]
	if !ok {
		lock = &sync.Mutex{}
		d.txLocks[txID] = lock
	}
	return lock
}

func (d *Dispatcher) currentStatus(tx *models.Transaction) models.TransactionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return tx.Status
}

// update applies field writes under d.mu so CheckStatus snapshots never
// observe torn state.
func (d *Dispatcher) update(_ *models.Transaction, fn func()) {
	d.mu.Lock()
	fn()
	d.mu.Unlock()
}

func channelLabel(record *models.SettlementRecord) string {
	if record == nil {
		return "unrouted"
	}
	return string(record.Channel)
}
