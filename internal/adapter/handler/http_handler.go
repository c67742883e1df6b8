package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront/order-core/internal/core/domain"
	"github.com/storefront/order-core/internal/core/service"
	"github.com/storefront/order-core/internal/port"
)

type OrderHandler struct {
	writer  *service.OrderWriter
	store   port.OrderStore
	deduper port.RequestDeduper
}

func NewOrderHandler(writer *service.OrderWriter, store port.OrderStore, deduper port.RequestDeduper) *OrderHandler {
	return &OrderHandler{writer: writer, store: store, deduper: deduper}
}

func (h *OrderHandler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/orders", h.PlaceOrder)
	api.GET("/orders/:id", h.GetOrder)
}

type placeOrderLine struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type placeOrderRequest struct {
	RequestID  string           `json:"request_id"`
	CustomerID int64            `json:"customer_id" binding:"required"`
	Lines      []placeOrderLine `json:"lines"`
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	success := false
	defer func() { RecordOrderOperation("place", success) }()

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Optional transport-edge dedup: a retried request with the same ID is
	// rejected rather than replayed.
	if req.RequestID != "" {
		ok, err := h.deduper.ClaimRequest(c.Request.Context(), req.RequestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "dedup check failed"})
			return
		}
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate request"})
			return
		}
	}

	lines := make([]domain.LineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.LineRequest{ProductID: l.ProductID, Quantity: l.Quantity}
	}

	orderID, err := h.writer.PlaceOrder(c.Request.Context(), req.CustomerID, lines)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		var persistErr *domain.PersistenceError

		switch {
		case errors.Is(err, domain.ErrEmptyOrder):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order must contain at least one line item"})
		case errors.Is(err, domain.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "line quantity must be positive"})
		case errors.As(err, &stockErr):
			c.JSON(http.StatusConflict, gin.H{
				"error":      "insufficient stock",
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		case errors.Is(err, domain.ErrReserveTimeout):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stock reservation timed out, retry later"})
		case errors.As(err, &persistErr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order could not be persisted"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	success = true
	c.JSON(http.StatusCreated, gin.H{"order_id": orderID})
}

type orderLineResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	CustomerID  int64               `json:"customer_id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	OrderDate   string              `json:"order_date"`
	Lines       []orderLineResponse `json:"lines"`
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	success := false
	defer func() { RecordOrderOperation("get", success) }()

	order, lines, err := h.store.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	resp := orderResponse{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.StringFixed(2),
		OrderDate:   order.OrderDate.Format("2006-01-02T15:04:05Z07:00"),
		Lines:       make([]orderLineResponse, len(lines)),
	}
	for i, line := range lines {
		resp.Lines[i] = orderLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal().StringFixed(2),
		}
	}

	success = true
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
