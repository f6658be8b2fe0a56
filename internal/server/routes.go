package server

import (
	"net/http"
	"strings"
	"time"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Auth
	mux.HandleFunc("/api/auth/token", s.handleAuthToken)

	// Market data
	mux.HandleFunc("/api/market/stocks/", s.handleMarketStocks)
	mux.HandleFunc("/api/market/forex/", s.handleMarketForex)
	mux.HandleFunc("/api/market/crypto/", s.handleMarketCrypto)
	mux.HandleFunc("/api/news", s.handleNews)
	mux.HandleFunc("/api/economic/", s.handleEconomic)

	// Source configuration
	mux.HandleFunc("/api/sources/validate", s.handleSourcesValidate)
	mux.HandleFunc("/api/sources/", s.routeSources)
	mux.HandleFunc("/api/sources", s.handleSourcesList)

	// Cache
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/cache", s.handleCacheClear)

	// Import
	mux.HandleFunc("/api/import/csv", s.handleImportCSV)
}

// routeSources dispatches /api/sources/{name or data type}/* requests.
// Supported shapes:
//
//	GET  /api/sources/{data_type}          current mapping for a data type
//	PUT  /api/sources/{data_type}          remap a data type to a provider
//	POST /api/sources/{provider}/test      connectivity test
func (s *Server) routeSources(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sources/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "data type or provider is required in path")
		return
	}

	if strings.HasSuffix(path, "/test") {
		s.handleSourceTest(w, r, PathParam(r, "/api/sources/", "/test"))
		return
	}
	if strings.Contains(path, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleSourceGet(w, r, path)
	case http.MethodPut:
		s.handleSourceSet(w, r, path)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
