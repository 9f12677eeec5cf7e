package api

import (
	"github.com/gin-gonic/gin"

	"trading-core/internal/apperr"
)

type exchangeOrderRequest struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

func (s *Server) exchangeOrder(c *gin.Context) {
	var req exchangeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	s.route(c, "exchange", "order", map[string]any{
		"exchange": req.Exchange, "symbol": req.Symbol, "side": req.Side,
		"type": req.Type, "quantity": req.Quantity, "price": req.Price,
	})
}

type exchangeCancelRequest struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	OrderID  string `json:"orderId"`
}

func (s *Server) exchangeCancel(c *gin.Context) {
	var req exchangeCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	s.route(c, "exchange", "cancel", map[string]any{
		"exchange": req.Exchange, "symbol": req.Symbol, "orderId": req.OrderID,
	})
}

func (s *Server) exchangeBalance(c *gin.Context) {
	s.route(c, "exchange", "balance", queryParams(c, "exchange"))
}

func (s *Server) exchangeOrders(c *gin.Context) {
	s.route(c, "exchange", "orders", queryParams(c, "exchange"))
}

func (s *Server) exchangeHistory(c *gin.Context) {
	s.route(c, "exchange", "history", queryParams(c, "exchange"))
}
