package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/search"
)

// SearchHandler runs full-text queries over the user's stars.
type SearchHandler struct {
	index  *search.Index
	logger *slog.Logger
}

func NewSearchHandler(index *search.Index, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{index: index, logger: logger}
}

// HandleSearch matches names, descriptions and READMEs.
//
// HTTP: GET /api/search?q=router&limit=10
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, apperror.ValidationFailed("q", "query is required"))
		return
	}

	results, err := h.index.Search(userID, q, listOptions(r).Limit)
	if err != nil {
		// Malformed query strings ("foo:" etc.) fail here.
		h.logger.WarnContext(r.Context(), "search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("q", "could not run query"))
		return
	}
	writeJSON(w, http.StatusOK, results)
}
