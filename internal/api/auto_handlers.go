package api

import "github.com/gin-gonic/gin"

func (s *Server) autoEnable(c *gin.Context) {
	var req struct {
		Exchange string `json:"exchange"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Exchange == "" {
		req.Exchange = c.Query("exchange")
	}
	s.route(c, "auto", "enable", map[string]any{"exchange": req.Exchange})
}

func (s *Server) autoDisable(c *gin.Context) {
	var req struct {
		Exchange string `json:"exchange"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Exchange == "" {
		req.Exchange = c.Query("exchange")
	}
	s.route(c, "auto", "disable", map[string]any{"exchange": req.Exchange})
}

func (s *Server) autoStatus(c *gin.Context) {
	s.route(c, "auto", "status", queryParams(c, "exchange"))
}
