package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trade-assistant/internal/order"
	"trade-assistant/pkg/exchanges/common"
)

// submitOrder runs one submission through the router and maps
// pre-dispatch failures onto HTTP codes. A dispatched order always
// returns 200 with the result envelope, success or not.
func (s *Server) submitOrder(c *gin.Context) {
	var req order.Request
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	env, err := s.orders.Submit(c.Request.Context(), currentUserID(c), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, env)

	case order.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_ORDER",
			"error": err.Error(),
		})

	case errors.Is(err, order.ErrNoCredentials):
		c.JSON(http.StatusConflict, gin.H{
			"code":  "NO_CREDENTIALS",
			"error": "no exchange credentials configured, add them first",
		})

	case errors.Is(err, order.ErrCredentialsUnreadable):
		c.JSON(http.StatusConflict, gin.H{
			"code":  "CREDENTIALS_UNREADABLE",
			"error": "stored credentials could not be decrypted, please re-enter them",
		})

	default:
		s.log.WithError(err).Error("order submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "order submission failed",
		})
	}
}

// cancelOrder revokes a resting order by its exchange id.
func (s *Server) cancelOrder(c *gin.Context) {
	symbol := c.Param("symbol")
	orderID := c.Param("orderId")
	exchange := c.DefaultQuery("exchange", "binance")

	err := s.orders.Cancel(c.Request.Context(), currentUserID(c), exchange, symbol, orderID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"canceled": true,
			"symbol":   strings.ToUpper(symbol),
			"order_id": orderID,
		})

	case order.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_CANCEL",
			"error": err.Error(),
		})

	case errors.Is(err, order.ErrNoCredentials):
		c.JSON(http.StatusConflict, gin.H{
			"code":  "NO_CREDENTIALS",
			"error": "no exchange credentials configured, add them first",
		})

	case errors.Is(err, order.ErrCredentialsUnreadable):
		c.JSON(http.StatusConflict, gin.H{
			"code":  "CREDENTIALS_UNREADABLE",
			"error": "stored credentials could not be decrypted, please re-enter them",
		})

	default:
		if apiErr, ok := common.AsAPIError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{
				"code":  "EXCHANGE_ERROR",
				"error": apiErr.Message,
			})
			return
		}
		s.log.WithError(err).Error("order cancellation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "order cancellation failed",
		})
	}
}

// listOrderLogs returns the caller's audit trail, most recent first.
func (s *Server) listOrderLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := s.db.ListOrderLogs(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		s.log.WithError(err).Error("order log query failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to load order logs",
		})
		return
	}

	out := make([]gin.H, 0, len(logs))
	for _, entry := range logs {
		out = append(out, gin.H{
			"id":         entry.ID,
			"exchange":   entry.Exchange,
			"symbol":     entry.Symbol,
			"side":       entry.Side,
			"type":       entry.Type,
			"qty":        entry.Qty,
			"price":      entry.Price,
			"status":     entry.Status,
			"resp_json":  entry.RespJSON,
			"created_at": entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}
