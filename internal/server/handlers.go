package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fincept/terminal/internal/common"
)

// handleHealth handles GET /api/health — cache smoke test plus a probe of
// every currently mapped provider.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report := s.app.DataSources.HealthCheck(r.Context())

	status := "ok"
	statusCode := http.StatusOK
	if !report.CacheOK {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}
	for _, providerStatus := range report.Providers {
		if providerStatus != "ok" {
			status = "degraded"
		}
	}

	WriteJSON(w, statusCode, map[string]interface{}{
		"status":     status,
		"cache_ok":   report.CacheOK,
		"providers":  report.Providers,
		"checked_at": report.CheckedAt.Format(time.RFC3339),
		"uptime":     time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleMarketStocks handles GET /api/market/stocks/{symbol}?period=1mo&interval=1d.
func (s *Server) handleMarketStocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/market/stocks/")
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	period := r.URL.Query().Get("period")
	interval := r.URL.Query().Get("interval")

	result := s.app.DataSources.GetStockData(r.Context(), symbol, period, interval)
	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleMarketForex handles GET /api/market/forex/{base}-{quote}.
// The pair uses a dash in the path ("EUR-USD") since a slash would split it.
func (s *Server) handleMarketForex(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pair := strings.TrimPrefix(r.URL.Path, "/api/market/forex/")
	if pair == "" || strings.Contains(pair, "/") {
		WriteError(w, http.StatusBadRequest, "currency pair is required in path, e.g. EUR-USD")
		return
	}

	result := s.app.DataSources.GetForexData(r.Context(), strings.ReplaceAll(pair, "-", "/"))
	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleMarketCrypto handles GET /api/market/crypto/{symbol}.
func (s *Server) handleMarketCrypto(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/market/crypto/")
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	result := s.app.DataSources.GetCryptoData(r.Context(), symbol)
	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleNews handles GET /api/news?category=business&limit=10.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	category := r.URL.Query().Get("category")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	result := s.app.DataSources.GetNews(r.Context(), category, limit)
	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleEconomic handles GET /api/economic/{indicator}. The indicator may
// contain slashes (DBnomics series IDs like OECD/KEI/...), so everything
// after the prefix is the indicator.
func (s *Server) handleEconomic(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	indicator := strings.TrimPrefix(r.URL.Path, "/api/economic/")
	if indicator == "" {
		WriteError(w, http.StatusBadRequest, "indicator is required in path")
		return
	}

	result := s.app.DataSources.GetEconomicData(r.Context(), indicator)
	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
