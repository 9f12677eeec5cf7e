package api

import "github.com/gin-gonic/gin"

func (s *Server) marketPrices(c *gin.Context) {
	s.route(c, "market", "prices", queryParams(c, "exchange", "symbol", "interval"))
}

func (s *Server) marketCandles(c *gin.Context) {
	params := queryParams(c, "exchange", "symbol", "interval")
	if count, err := parseIntQuery(c, "count"); err == nil {
		params["count"] = float64(count)
	}
	s.route(c, "market", "candles", params)
}

func (s *Server) marketOrderbook(c *gin.Context) {
	s.route(c, "market", "orderbook", queryParams(c, "exchange", "symbol"))
}
