package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zuzuna54/fintech-app-demo/internal/gateway"
	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/payments"
	"github.com/Zuzuna54/fintech-app-demo/internal/response"
)

// PaymentHandler validates ACH payments locally before forwarding them.
type PaymentHandler struct {
	gw  *gateway.Client
	log *logger.Logger
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(gw *gateway.Client, log *logger.Logger) *PaymentHandler {
	if log == nil {
		log = logger.Get()
	}
	return &PaymentHandler{gw: gw, log: log}
}

// Create handles POST /payments. The request is validated against the
// operator's visible accounts before anything reaches the backend.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req payments.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payment payload")
		return
	}

	accounts, err := h.gw.Accounts(c.Request.Context())
	if err != nil {
		if gateway.IsAuthError(err) {
			response.Unauthorized(c, "Session expired")
			return
		}
		response.Error(c, http.StatusBadGateway, "ACCOUNTS_UNAVAILABLE",
			"Could not load accounts for validation", err.Error())
		return
	}

	wire, fieldErrs := payments.Validate(&req, accounts)
	if fieldErrs != nil {
		response.ValidationFailed(c, "Payment validation failed", fieldErrs)
		return
	}

	result, err := h.gw.CreatePayment(c.Request.Context(), wire)
	if err != nil {
		if gateway.IsAuthError(err) {
			response.Unauthorized(c, "Session expired")
			return
		}
		response.Error(c, http.StatusBadGateway, "PAYMENT_FAILED",
			"Payment submission failed", err.Error())
		return
	}

	h.log.Info("payment created",
		zap.String("payment_id", result.ID),
		zap.String("payment_type", string(req.PaymentType)),
		zap.String("idempotency_key", wire.IdempotencyKey),
	)
	response.Created(c, result)
}
