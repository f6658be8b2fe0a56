package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func issueToken(t *testing.T, srv *Server, clientID string) string {
	t.Helper()
	rec := doRequest(srv, http.MethodPost, "/api/auth/token", map[string]string{
		"client_id":   clientID,
		"service_key": srv.app.Config.Auth.JWTSecret,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Bearer", resp.TokenType)
	return resp.AccessToken
}

func TestAuthTokenIssuance(t *testing.T) {
	srv := newTestServer(t, &stubManager{})

	token := issueToken(t, srv, "terminal-ui")

	claims, err := validateJWT(token, []byte(srv.app.Config.Auth.JWTSecret))
	require.NoError(t, err)
	assert.Equal(t, "terminal-ui", claims["sub"])
}

func TestAuthTokenWrongKey(t *testing.T) {
	srv := newTestServer(t, &stubManager{})

	rec := doRequest(srv, http.MethodPost, "/api/auth/token", map[string]string{
		"client_id":   "terminal-ui",
		"service_key": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMutatingEndpointRequiresAuthInProduction(t *testing.T) {
	srv := newTestServer(t, &stubManager{})
	srv.app.Config.Environment = "production"

	rec := doRequest(srv, http.MethodPut, "/api/sources/stocks", map[string]string{"provider": "yfinance"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With a valid token the same request succeeds.
	token := issueToken(t, srv, "terminal-ui")
	req := httptest.NewRequest(http.MethodPut, "/api/sources/stocks", jsonBody(t, map[string]string{"provider": "yfinance"}))
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	srv := newTestServer(t, &stubManager{})
	srv.app.Config.Environment = "production"

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "terminal-ui",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte(srv.app.Config.Auth.JWTSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/sources/stocks", jsonBody(t, map[string]string{"provider": "yfinance"}))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflights(t *testing.T) {
	srv := newTestServer(t, &stubManager{})

	rec := doRequest(srv, http.MethodOptions, "/api/sources", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorrelationIDGenerated(t *testing.T) {
	srv := newTestServer(t, &stubManager{})

	rec := doRequest(srv, http.MethodGet, "/api/version", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestCorrelationIDPropagated(t *testing.T) {
	srv := newTestServer(t, &stubManager{})

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Correlation-ID"))
}

func TestPathParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/sources/yfinance/test", nil)
	assert.Equal(t, "yfinance", PathParam(req, "/api/sources/", "/test"))

	req = httptest.NewRequest(http.MethodGet, "/api/sources/stocks", nil)
	assert.Equal(t, "stocks", PathParam(req, "/api/sources/", ""))

	req = httptest.NewRequest(http.MethodGet, "/other", nil)
	assert.Equal(t, "", PathParam(req, "/api/sources/", ""))
}
