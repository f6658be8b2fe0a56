package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// handleAuthToken handles POST /api/auth/token — service-to-service token
// issuance. The caller presents the shared service key and receives an
// HS256 bearer token for the mutating endpoints.
func (s *Server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ClientID   string `json:"client_id"`
		ServiceKey string `json:"service_key"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.ClientID == "" {
		WriteError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	secret := s.app.Config.Auth.JWTSecret
	if secret == "" {
		WriteError(w, http.StatusNotImplemented, "token issuance not configured")
		return
	}

	// Constant-time comparison to prevent timing attacks.
	if subtle.ConstantTimeCompare([]byte(req.ServiceKey), []byte(secret)) != 1 {
		WriteError(w, http.StatusForbidden, "invalid service key")
		return
	}

	expiry := s.app.Config.Auth.GetTokenExpiry()
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.ClientID,
		"iss": "fincept-terminal",
		"iat": now.Unix(),
		"exp": now.Add(expiry).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	s.logger.Info().Str("client_id", req.ClientID).Msg("Issued access token")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(expiry.Seconds()),
	})
}
