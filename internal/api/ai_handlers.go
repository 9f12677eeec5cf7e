package api

import "github.com/gin-gonic/gin"

func (s *Server) aiAnalyze(c *gin.Context) {
	s.route(c, "ai", "analyze", queryParams(c, "exchange", "symbol", "interval"))
}

func (s *Server) aiBacktest(c *gin.Context) {
	s.route(c, "ai", "backtest", queryParams(c, "exchange", "symbol", "interval"))
}

func (s *Server) aiMultiAnalyze(c *gin.Context) {
	s.route(c, "ai", "multi-analyze", queryParams(c, "exchange", "symbol", "interval"))
}
