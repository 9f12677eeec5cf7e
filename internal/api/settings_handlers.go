package api

import (
	"github.com/gin-gonic/gin"

	"trading-core/internal/apperr"
)

type apiKeysRequest struct {
	Exchange  string `json:"exchange"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
}

func (s *Server) saveApiKeys(c *gin.Context) {
	var req apiKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	s.route(c, "auto", "saveApiKeys", map[string]any{
		"exchange": req.Exchange, "accessKey": req.AccessKey, "secretKey": req.SecretKey,
	})
}

func (s *Server) getApiKeys(c *gin.Context) {
	s.route(c, "auto", "getApiKeys", queryParams(c, "exchange"))
}

func (s *Server) deleteApiKeys(c *gin.Context) {
	s.route(c, "auto", "deleteApiKeys", queryParams(c, "exchange"))
}
