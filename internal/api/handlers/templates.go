package handlers

import (
	"architect/internal/repository/db"
	"net/http"
)

type TemplateInfo struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	db.TemplateData
}

type TemplatesResponse struct {
	Templates []TemplateInfo `json:"templates"`
}

// ListTemplates returns the template catalog, optionally filtered by ?category=
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var (
		templates []db.Template
		err       error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		templates, err = h.config.Templates.ListByCategory(r.Context(), category)
	} else {
		templates, err = h.config.Templates.List(r.Context())
	}
	if err != nil {
		h.sendServiceError(w, r, err, "Error retrieving templates")
		return
	}

	resp := TemplatesResponse{Templates: make([]TemplateInfo, 0, len(templates))}
	for _, t := range templates {
		resp.Templates = append(resp.Templates, TemplateInfo{ID: t.ID, Category: t.Category, TemplateData: t.Data})
	}
	writeJSON(w, http.StatusOK, resp)
}
