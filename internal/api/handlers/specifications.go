package handlers

import (
	"architect/internal/logger"
	"architect/internal/repository/db"
	specificationService "architect/internal/service/specification"
	"architect/pkg/validation"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type SpecificationResponse struct {
	ID             int64       `json:"id"`
	ConversationID *int64      `json:"conversation_id"`
	AppName        string      `json:"app_name"`
	Document       db.Document `json:"document"`
	BuildPrompt    string      `json:"build_prompt"`
	Version        int         `json:"version"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SynthesisResponse is the stored specification plus the generated output it
// was built from
type SynthesisResponse struct {
	SpecificationResponse
	Output *specificationService.Output `json:"output"`
}

type SpecificationsResponse struct {
	Specifications []SpecificationResponse `json:"specifications"`
}

// Synthesize generates a specification from a conversation of the caller
func (h *Handlers) Synthesize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.config.Specifications.Synthesize(r.Context(), id, ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error generating specification")
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id":  id,
		"specification_id": result.Specification.ID,
		"app_name":         result.Specification.AppName,
	}).Info("Specification generated")

	writeJSON(w, http.StatusCreated, SynthesisResponse{
		SpecificationResponse: toSpecificationResponse(result.Specification),
		Output:                result.Output,
	})
}

// ListSpecifications returns all specifications of the caller
func (h *Handlers) ListSpecifications(w http.ResponseWriter, r *http.Request) {
	specs, err := h.config.Specifications.List(r.Context(), ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error retrieving specifications")
		return
	}

	resp := SpecificationsResponse{Specifications: make([]SpecificationResponse, 0, len(specs))}
	for i := range specs {
		resp.Specifications = append(resp.Specifications, toSpecificationResponse(&specs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSpecification returns one specification of the caller
func (h *Handlers) GetSpecification(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	spec, err := h.config.Specifications.Get(r.Context(), id, ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error retrieving specification")
		return
	}

	writeJSON(w, http.StatusOK, toSpecificationResponse(spec))
}

// UpdateSpecification replaces the document and/or build prompt and bumps the version
func (h *Handlers) UpdateSpecification(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.UpdateSpecificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	patch := specificationService.Patch{BuildPrompt: req.BuildPrompt}
	if len(req.Document) > 0 {
		var doc db.Document
		if err := json.Unmarshal(req.Document, &doc); err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid_input", "Invalid document: "+err.Error())
			return
		}
		patch.Document = &doc
	}

	spec, err := h.config.Specifications.Update(r.Context(), id, ownerID(r), patch)
	if err != nil {
		h.sendServiceError(w, r, err, "Error updating specification")
		return
	}

	writeJSON(w, http.StatusOK, toSpecificationResponse(spec))
}

// ExportSpecification downloads the build prompt as a markdown file
func (h *Handlers) ExportSpecification(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	export, err := h.config.Specifications.Export(r.Context(), id, ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error exporting specification")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(export.Content))
}

func toSpecificationResponse(spec *db.Specification) SpecificationResponse {
	return SpecificationResponse{
		ID:             spec.ID,
		ConversationID: spec.ConversationID,
		AppName:        spec.AppName,
		Document:       spec.Document,
		BuildPrompt:    spec.BuildPrompt,
		Version:        spec.Version,
		CreatedAt:      spec.CreatedAt,
	}
}
