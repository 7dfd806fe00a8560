package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trade-assistant/pkg/db"
)

// putCredentials encrypts and stores exchange API keys for the caller.
// Plaintext exists only inside this handler; responses and logs never
// echo it.
func (s *Server) putCredentials(c *gin.Context) {
	var req struct {
		Exchange  string `json:"exchange"`
		APIKey    string `json:"api_key"`
		APISecret string `json:"api_secret"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}
	if req.APIKey == "" || req.APISecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_KEYS",
			"error": "api_key and api_secret are required",
		})
		return
	}
	exchange := strings.ToLower(strings.TrimSpace(req.Exchange))
	if exchange == "" {
		exchange = "binance"
	}

	keyEnc, err := s.vault.Encrypt(req.APIKey)
	if err != nil {
		s.log.WithError(err).Error("credential encryption failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to store credentials",
		})
		return
	}
	secretEnc, err := s.vault.Encrypt(req.APISecret)
	if err != nil {
		s.log.WithError(err).Error("credential encryption failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to store credentials",
		})
		return
	}

	userID := currentUserID(c)
	err = s.db.UpsertCredentials(c.Request.Context(), db.CredentialRecord{
		UserID:       userID,
		Exchange:     exchange,
		APIKeyEnc:    keyEnc,
		APISecretEnc: secretEnc,
		KeyVersion:   s.vault.CurrentVersion(),
	})
	if err != nil {
		s.log.WithError(err).Error("credential upsert failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to store credentials",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exchange": exchange, "configured": true})
}

// credentialsStatus reports whether keys are configured, never their
// contents.
func (s *Server) credentialsStatus(c *gin.Context) {
	exchange := strings.ToLower(c.DefaultQuery("exchange", "binance"))

	rec, err := s.db.GetCredentials(c.Request.Context(), currentUserID(c), exchange)
	if err != nil {
		s.log.WithError(err).Error("credential lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to check credentials",
		})
		return
	}

	resp := gin.H{"exchange": exchange, "configured": rec != nil}
	if rec != nil {
		resp["updated_at"] = rec.UpdatedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
