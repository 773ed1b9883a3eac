// internal/handler/payment_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/dispatcher"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/ledger"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

type PaymentHandler struct {
	dispatcher *dispatcher.Dispatcher
	ledger     ledger.Ledger
	logger     *zap.Logger
}

func NewPaymentHandler(d *dispatcher.Dispatcher, l ledger.Ledger, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		dispatcher: d,
		ledger:     l,
		logger:     logger,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.dispatcher.ProcessPayment(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response := gin.H{"transaction": tx}
	if tx.Status == models.StatusPending3DS {
		response["next_action"] = "complete_3ds_authentication"
	}

	c.JSON(http.StatusCreated, response)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	tx, err := h.dispatcher.CheckStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// GetPaymentHistory handles GET /api/v1/payments/:id/history
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	history, err := h.ledger.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to load transition history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// ConfirmPayment handles POST /api/v1/payments/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	tx, err := h.dispatcher.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// CancelPayment handles POST /api/v1/payments/:id/cancel
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	tx, err := h.dispatcher.CancelPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// ProviderCallback handles POST /api/v1/webhooks/:provider
func (h *PaymentHandler) ProviderCallback(c *gin.Context) {
	provider := c.Param("provider")
	signature := c.GetHeader("X-Signature")

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if err := h.dispatcher.HandleProviderCallback(c.Request.Context(), provider, signature, payload); err != nil {
		var verifyErr *models.CallbackVerificationError
		if errors.As(err, &verifyErr) {
			// Discarded unprocessed; do not help forgers distinguish.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}
		h.logger.Warn("callback not applied", zap.String("provider", provider), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *PaymentHandler) writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error_code": "VALIDATION_FAILED",
			"errors":     validationErr.Errors,
		})
		return
	}

	if errors.Is(err, dispatcher.ErrTransactionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	h.logger.Error("payment processing failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payment"})
}
