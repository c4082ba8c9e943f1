package api

import (
	"errors"
	"net/http"

	"cafesync/internal/domain/order"
	reqdto "cafesync/internal/handler/dto/request"
	resdto "cafesync/internal/handler/dto/response"
	"cafesync/internal/handler/httperr"
	"cafesync/internal/usecase/commands"
	"cafesync/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type OrdersHandler struct {
	orderCommands commands.OrderCommands
	orderQueries  queries.OrderQueries
}

func NewOrdersHandler(orderCommands commands.OrderCommands, orderQueries queries.OrderQueries) *OrdersHandler {
	return &OrdersHandler{
		orderCommands: orderCommands,
		orderQueries:  orderQueries,
	}
}

func (h *OrdersHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderQueries.ListActive(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, httperr.CodeInternal, "Failed to list orders", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrders(orders))
}

func (h *OrdersHandler) GetOrder(c *gin.Context) {
	o, err := h.orderQueries.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, queries.ErrOrderNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, httperr.CodeOrderNotFound, "Order not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, httperr.CodeInternal, "Failed to load order", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrder(o))
}

func (h *OrdersHandler) ChangeStatus(c *gin.Context) {
	var req reqdto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, httperr.CodeBadRequest, "Invalid request format", nil)
		return
	}

	// Ingress boundary: producer vocabulary is rewritten exactly once, here.
	st, err := order.NormalizeStatus(req.Status)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, httperr.CodeBadRequest, "Unknown status value", nil)
		return
	}

	o, err := h.orderCommands.ChangeStatus(c.Request.Context(), c.Param("id"), st, req.EstimatedReadyAt)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, httperr.CodeOrderNotFound, "Order not found", nil)
		case errors.Is(err, commands.ErrInvalidTransition):
			httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, httperr.CodeInvalidTransition, "Illegal status transition", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, httperr.CodeInternal, "Internal server error", nil)
		}
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrder(o))
}

func (h *OrdersHandler) VerifyPayment(c *gin.Context) {
	var req reqdto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, httperr.CodeBadRequest, "Invalid request format", nil)
		return
	}

	result, err := h.orderCommands.VerifyPayment(
		c.Request.Context(), c.Param("id"), req.VerifiedBy, order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, httperr.CodeOrderNotFound, "Order not found", nil)
		case errors.Is(err, commands.ErrInvalidMethod):
			httperr.AbortWithError(c, http.StatusBadRequest, err, httperr.CodeInvalidMethod, "Unknown payment method", nil)
		case errors.Is(err, commands.ErrPaymentProofMissing):
			httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, httperr.CodeProofMissing, "Payment proof missing", nil)
		case errors.Is(err, commands.ErrInvalidTransition):
			httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, httperr.CodeInvalidTransition, "Order is not awaiting verification", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, httperr.CodeInternal, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.VerifyPaymentResponse{
		Order:           resdto.FromOrder(result.Order),
		AlreadyVerified: result.AlreadyVerified,
	})
}
