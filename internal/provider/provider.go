// internal/provider/provider.go
// Rail adapters. Each adapter owns the wire-specific request shape,
// signing and response mapping for one payment rail, and converts every
// failure into a ProviderResult instead of propagating raw errors.
package provider

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// Adapter executes a payment on one rail. Execute never returns a Go
// error: rail failures come back as ProviderResult with Success=false so
// the dispatcher needs no rail-specific catch logic.
type Adapter interface {
	Rail() string
	Execute(ctx context.Context, tx *models.Transaction) *models.ProviderResult
}

// StatusPoller is implemented by rails confirmed by polling rather than
// callbacks (crypto, some mobile money networks).
type StatusPoller interface {
	Poll(ctx context.Context, tx *models.Transaction) *models.ProviderResult
}

// Confirmer is implemented by rails with a resumable step-up flow (3DS).
type Confirmer interface {
	Confirm(ctx context.Context, tx *models.Transaction) *models.ProviderResult
}

// CallbackMapper maps a verified asynchronous callback payload onto the
// shared status set plus the provider-assigned reference.
type CallbackMapper interface {
	MapCallback(payload []byte) (models.TransactionStatus, string, error)
}

// Registry is the compile-time method->adapter lookup, built at startup
// and injected into the dispatcher. New rails are added by implementing
// Adapter, not by modifying the dispatcher.
type Registry struct {
	byMethod   map[models.PaymentMethod]Adapter
	byProvider map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		byMethod:   make(map[models.PaymentMethod]Adapter),
		byProvider: make(map[string]Adapter),
	}
}

func (r *Registry) Register(method models.PaymentMethod, adapter Adapter) {
	r.byMethod[method] = adapter
}

// RegisterProvider routes inbound callbacks for a named provider to an
// adapter (many mobile money providers share one adapter).
func (r *Registry) RegisterProvider(name string, adapter Adapter) {
	r.byProvider[name] = adapter
}

func (r *Registry) ForMethod(method models.PaymentMethod) (Adapter, bool) {
	a, ok := r.byMethod[method]
	return a, ok
}

func (r *Registry) ForProvider(name string) (Adapter, bool) {
	a, ok := r.byProvider[name]
	return a, ok
}

// timeoutResult is the shared shape for deadline-exceeded provider calls:
// retryable, never a raw I/O failure.
func timeoutResult() *models.ProviderResult {
	return &models.ProviderResult{
		Success:      false,
		Status:       models.StatusTimeout,
		ErrorCode:    "PROVIDER_TIMEOUT",
		ErrorMessage: "provider did not respond within the deadline",
		Retryable:    true,
	}
}

func failure(code, message string, retryable bool) *models.ProviderResult {
	return &models.ProviderResult{
		Success:      false,
		Status:       models.StatusFailed,
		ErrorCode:    code,
		ErrorMessage: message,
		Retryable:    retryable,
	}
}

// deadlineExceeded distinguishes our own timeout from transport errors.
func deadlineExceeded(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func decimalHundred() decimal.Decimal {
	return decimal.NewFromInt(100)
}
