package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	resdto "culture-booking/internal/handler/dto/response"
	"culture-booking/internal/pkg/errs"
	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

// webhookBodyLimit caps how much of a provider delivery is read before
// signature verification.
const webhookBodyLimit = 1 << 20

type PaymentHandler struct {
	paymentCommands commands.PaymentCommands
	paymentQueries  queries.PaymentQueries
}

func NewPaymentHandler(paymentCommands commands.PaymentCommands, paymentQueries queries.PaymentQueries) *PaymentHandler {
	return &PaymentHandler{
		paymentCommands: paymentCommands,
		paymentQueries:  paymentQueries,
	}
}

// @Summary Verify payment
// @Description Pull the provider's view of a transaction and reconcile it
// @Tags payments
// @Produce json
// @Param reference path string true "Transaction reference"
// @Success 200 {object} resdto.ReconcileResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /payments/verify/{reference} [get]
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Transaction reference required",
		})
		return
	}

	result, err := h.paymentCommands.VerifyByReference(c.Request.Context(), reference)
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Payment record not found",
			})
		case errs.Is(err, errs.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown payment provider",
			})
		case errs.Is(err, errs.ErrGatewayUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Payment gateway unavailable, please retry",
			})
		case errs.Is(err, errs.ErrPaymentAmountMismatch):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Paid amount does not match booking total",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromReconcileResult(result))
}

// @Summary Provider webhook
// @Description Authenticated provider notification; reconciles the referenced payment
// @Tags payments
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /payments/webhook/{provider} [post]
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read webhook body",
		})
		return
	}

	result, err := h.paymentCommands.HandleWebhook(c.Request.Context(), provider, c.Request.Header, body)
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrUnknownProvider):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Unknown payment provider",
			})
		case errs.Is(err, errs.ErrInvalidWebhook):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Webhook verification failed",
			})
		case errs.Is(err, errs.ErrPaymentNotFound):
			// Unknown reference: acknowledge so the provider stops
			// retrying; there is nothing to reconcile against.
			slog.Warn("webhook for unknown payment reference", "provider", provider)
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		case errs.Is(err, errs.ErrPaymentAmountMismatch):
			// The record is flagged for review; acknowledge so the
			// provider stops redelivering the same mismatched report.
			c.JSON(http.StatusOK, gin.H{"status": "flagged"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "processed",
		"payment_status": result.PaymentStatus.String(),
	})
}

// @Summary List flagged payments
// @Description Records flagged for manual review (amount mismatch, conflicting outcomes)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max records to return"
// @Success 200 {array} resdto.PaymentResponse
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /admin/payments/flagged [get]
func (h *PaymentHandler) ListFlaggedPayments(c *gin.Context) {
	limit := int32(0)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid limit",
			})
			return
		}
		limit = int32(parsed)
	}

	views, err := h.paymentQueries.ListFlagged(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	responses, err := resdto.FromPaymentViews(views)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, responses)
}
