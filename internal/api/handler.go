package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"agent-storefront/internal/service"
	"agent-storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RateLimiter is the redis-backed fixed-window limiter
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Handler contains HTTP handlers
type Handler struct {
	orchestrator *service.Orchestrator
	limiter      RateLimiter
	rateLimit    int
}

// NewHandler creates a new HTTP handler; limiter may be nil to disable
// rate limiting
func NewHandler(orchestrator *service.Orchestrator, limiter RateLimiter, rateLimitPerMinute int) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		limiter:      limiter,
		rateLimit:    rateLimitPerMinute,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.rateLimitMiddleware())
	{
		v1.GET("/catalog", h.getCatalog)
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/fulfillment/retry", h.retryFulfillment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	// Identity and payment claims may arrive as headers instead of body
	// fields; body fields win when both are present.
	if req.AgentID == "" {
		req.AgentID = c.GetHeader("X-Agent-ID")
	}
	if req.Wallet == "" {
		req.Wallet = c.GetHeader("X-Wallet-Address")
	}
	if req.PaymentTxReference == "" {
		req.PaymentTxReference = c.GetHeader("X-Payment-Tx")
	}

	resp, err := h.orchestrator.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles order lookup. The response never includes the
// shipping address, for any caller.
func (h *Handler) getOrder(c *gin.Context) {
	resp, err := h.orchestrator.GetOrder(c.Request.Context(), c.Param("id"), c.Query("wallet"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listOrders handles order listing for a wallet
func (h *Handler) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.orchestrator.ListOrders(c.Request.Context(), c.Query("wallet"), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

// getCatalog handles catalog listing
func (h *Handler) getCatalog(c *gin.Context) {
	items, err := h.orchestrator.Catalog(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// retryFulfillment re-submits a fulfillment_failed order (operator
// endpoint)
func (h *Handler) retryFulfillment(c *gin.Context) {
	resp, err := h.orchestrator.RetryFulfillment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// renderError maps pipeline errors to their HTTP status. 402 responses
// always carry payment instructions.
func (h *Handler) renderError(c *gin.Context, err error) {
	if ae, ok := service.AsAdmissionError(err); ok {
		body := gin.H{
			"error": ae.Error(),
			"kind":  string(ae.Kind),
		}
		if ae.HTTPStatus() == http.StatusPaymentRequired {
			instructions := ae.Instructions
			if instructions == nil {
				instructions = h.orchestrator.PaymentInstructionsFor(nil)
			}
			body["payment_instructions"] = instructions
		}
		c.JSON(ae.HTTPStatus(), body)
		return
	}

	util.GetLogger().Error("Unhandled request error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "internal error",
	})
}

// rateLimitMiddleware rejects callers over the per-minute budget. Keyed
// by claimed wallet when present, client IP otherwise. Fails open on
// limiter errors.
func (h *Handler) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil || h.rateLimit <= 0 {
			c.Next()
			return
		}

		key := c.GetHeader("X-Wallet-Address")
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := h.limiter.Allow(c.Request.Context(), key, h.rateLimit, time.Minute)
		if err != nil {
			util.GetLogger().Warn("Rate limiter unavailable, failing open", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			util.RateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, retry later",
			})
			return
		}

		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
