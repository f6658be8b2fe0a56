package server

import (
	"errors"
	"net/http"

	"github.com/fincept/terminal/internal/models"
	"github.com/fincept/terminal/internal/services/datasource"
)

// handleSourcesList handles GET /api/sources — registry plus current mappings.
func (s *Server) handleSourcesList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.app.DataSources.Providers(),
		"mappings":  s.app.DataSources.Mappings(),
	})
}

// handleSourceGet handles GET /api/sources/{data_type}.
func (s *Server) handleSourceGet(w http.ResponseWriter, r *http.Request, rawType string) {
	dataType, err := models.ParseDataType(rawType)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"data_type": string(dataType),
		"provider":  s.app.DataSources.DataSource(dataType),
	})
}

// handleSourceSet handles PUT /api/sources/{data_type} with an optional
// provider config in the body.
func (s *Server) handleSourceSet(w http.ResponseWriter, r *http.Request, rawType string) {
	if !s.requireAuth(w, r) {
		return
	}

	dataType, err := models.ParseDataType(rawType)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Provider string               `json:"provider"`
		Config   *models.SourceConfig `json:"config,omitempty"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Provider == "" {
		WriteError(w, http.StatusBadRequest, "provider is required")
		return
	}

	if err := s.app.DataSources.SetDataSource(dataType, req.Provider, req.Config); err != nil {
		switch {
		case errors.Is(err, datasource.ErrUnknownProvider):
			WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "unknown_provider")
		case errors.Is(err, datasource.ErrUnsupportedDataType):
			WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "unsupported_data_type")
		default:
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"data_type": string(dataType),
		"provider":  req.Provider,
	})
}

// handleSourceTest handles POST /api/sources/{provider}/test.
func (s *Server) handleSourceTest(w http.ResponseWriter, r *http.Request, provider string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if provider == "" {
		WriteError(w, http.StatusBadRequest, "provider is required in path")
		return
	}

	test := s.app.DataSources.TestDataSource(r.Context(), provider)
	WriteJSON(w, http.StatusOK, test)
}

// handleSourcesValidate handles GET /api/sources/validate.
func (s *Server) handleSourcesValidate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, s.app.DataSources.ValidateConfiguration())
}

// handleCacheStats handles GET /api/cache/stats.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, s.app.DataSources.CacheStats())
}

// handleCacheClear handles DELETE /api/cache?data_type=stocks. Without a
// data_type the whole cache is dropped.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	if !s.requireAuth(w, r) {
		return
	}

	var dataType models.DataType
	if raw := r.URL.Query().Get("data_type"); raw != "" {
		dt, err := models.ParseDataType(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		dataType = dt
	}

	removed := s.app.DataSources.ClearCache(dataType)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"removed":   removed,
		"data_type": string(dataType),
	})
}

// handleImportCSV handles POST /api/import/csv. The file must already be
// readable by the server process; the request carries its path and the
// column mapping, not the bytes.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireAuth(w, r) {
		return
	}

	var req struct {
		Path          string            `json:"path"`
		DataType      string            `json:"data_type"`
		ColumnMapping map[string]string `json:"column_mapping,omitempty"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	dataType, err := models.ParseDataType(req.DataType)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	imp, err := s.app.DataSources.ImportCSV(req.Path, dataType, req.ColumnMapping)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, imp)
}
