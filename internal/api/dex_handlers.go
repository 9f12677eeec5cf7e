package api

import (
	"github.com/gin-gonic/gin"

	"trading-core/internal/apperr"
)

func (s *Server) dexSummary(c *gin.Context)   { s.route(c, "dex", "summary", nil) }
func (s *Server) dexPools(c *gin.Context)     { s.route(c, "dex", "pools", nil) }
func (s *Server) dexTokens(c *gin.Context)    { s.route(c, "dex", "tokens", nil) }

func (s *Server) dexOrderbook(c *gin.Context) {
	s.route(c, "dex", "orderbook", queryParams(c, "poolId"))
}

func (s *Server) dexHistory(c *gin.Context) {
	params := queryParams(c)
	if limit, err := parseIntQuery(c, "limit"); err == nil {
		params["limit"] = float64(limit)
	}
	s.route(c, "dex", "history", params)
}

func (s *Server) dexBalances(c *gin.Context) {
	s.route(c, "dex", "balances", nil)
}

type swapRequest struct {
	PoolID  string  `json:"poolId"`
	TokenIn string  `json:"tokenIn"`
	Amount  float64 `json:"amount"`
}

func (s *Server) dexSwap(c *gin.Context) {
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	s.route(c, "dex", "swap", map[string]any{"poolId": req.PoolID, "tokenIn": req.TokenIn, "amount": req.Amount})
}

type addLiquidityRequest struct {
	PoolID  string  `json:"poolId"`
	AmountA float64 `json:"amountA"`
	AmountB float64 `json:"amountB"`
}

func (s *Server) dexAddLiquidity(c *gin.Context) {
	var req addLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	s.route(c, "dex", "addLiquidity", map[string]any{"poolId": req.PoolID, "amountA": req.AmountA, "amountB": req.AmountB})
}

type placeOrderRequest struct {
	PoolID string  `json:"poolId"`
	Side   string  `json:"side"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

func (s *Server) dexPlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	s.route(c, "dex", "placeOrder", map[string]any{"poolId": req.PoolID, "side": req.Side, "price": req.Price, "amount": req.Amount})
}

func (s *Server) dexCancelOrder(c *gin.Context) {
	s.route(c, "dex", "cancelOrder", map[string]any{"orderId": c.Param("id")})
}

func (s *Server) dexPoolHistory(c *gin.Context) {
	params := map[string]any{"poolId": c.Param("id")}
	if limit, err := parseIntQuery(c, "limit"); err == nil {
		params["limit"] = float64(limit)
	}
	s.route(c, "dex", "poolHistory", params)
}
