package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/service"
)

// TagHandler exposes the shared tag registry.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// TagResponse adds the category's display label.
type TagResponse struct {
	model.Tag
	CategoryLabel string `json:"categoryLabel"`
}

func newTagResponse(t model.Tag) TagResponse {
	return TagResponse{Tag: t, CategoryLabel: t.Category.Label()}
}

// HandleList returns tags, most used first.
//
// HTTP: GET /api/tags?limit=&offset=
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context(), listOptions(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing tags", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = newTagResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

type createTagRequest struct {
	Name     string            `json:"name"`
	Category model.TagCategory `json:"category"`
}

// HandleCreate registers a tag. A taken name is 409 whatever the category.
//
// HTTP: POST /api/tags  {"name": "go", "category": "language"}
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	tag, err := h.tags.Create(r.Context(), req.Name, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "tag created", slog.String("name", tag.Name), slog.String("category", string(tag.Category)))
	writeJSON(w, http.StatusCreated, newTagResponse(*tag))
}
