package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-core/internal/apperr"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	user, token, expiresAt, err := s.Auth.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"userId":    user.ID,
		"username":  user.Username,
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.KindBadInput, "invalid request payload"))
		return
	}
	user, token, expiresAt, err := s.Auth.Login(c.Request.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    user.ID,
		"username":  user.Username,
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}
