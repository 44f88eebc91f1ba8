package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/server/http/dto"
)

// IdempotencyKeyHeader lets clients retry checkout without opening a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler manages checkout and payment verification endpoints.
type OrderHandler struct {
	facade CheckoutFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade CheckoutFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/order/create.
func (h *OrderHandler) Create(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.facade.Checkout(c.Request.Context(), userID, req.ToCheckoutRequest(c.GetHeader(IdempotencyKeyHeader)))
	if err != nil {
		var gwErr *domainErrors.GatewayError
		switch {
		case errors.As(err, &gwErr):
			writeGatewayError(c, gwErr)
		case errors.Is(err, domainErrors.ErrUnauthorized):
			abortWithError(c, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, domainErrors.ErrInvalidRequest):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, domainErrors.ErrForbidden):
			abortWithError(c, http.StatusForbidden, "customer does not match the caller")
		case errors.Is(err, domainErrors.ErrCheckoutInProgress),
			errors.Is(err, domainErrors.ErrIdempotencyConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			abortWithError(c, http.StatusConflict, "order already exists")
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, dto.CreateOrderResponse{
		OrderID:           session.OrderID,
		PaymentSessionID:  session.PaymentSessionID,
		VerificationToken: session.VerificationToken,
	})
}

// Verify handles GET /api/order/verify-payment.
func (h *OrderHandler) Verify(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		abortWithError(c, http.StatusBadRequest, "order_id is required")
		return
	}

	// A verification token bound to order_id takes precedence over the session.
	callerID := CurrentUserID(c)
	if token := c.Query("token"); token != "" {
		if verifier, err := h.facade.VerifierFromToken(token, orderID); err == nil {
			callerID = verifier
		}
	}
	if callerID == "" {
		abortWithError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := h.facade.VerifyPayment(c.Request.Context(), callerID, orderID)
	if err != nil {
		var gwErr *domainErrors.GatewayError
		switch {
		case errors.As(err, &gwErr):
			writeVerificationGatewayError(c, gwErr)
		case errors.Is(err, domainErrors.ErrInvalidRequest):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, domainErrors.ErrUnauthorized):
			abortWithError(c, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, domainErrors.ErrForbidden):
			abortWithError(c, http.StatusForbidden, "order belongs to another user")
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewVerifyPaymentResponse(*result))
}
