package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/model"
	"github.com/FolioWorksLab/foliosite/internal/storage"
)

const (
	errorValueInvalidJSON        = "invalid_json"
	errorValueMissingData        = "missing_data"
	errorValueUnknownSection     = "unknown_section"
	errorValueInvalidPayload     = "invalid_payload"
	errorValueSectionNotFound    = "section_not_found"
	errorValueStorageUnavailable = "storage_unavailable"

	sectionUpdatedMessage = "Section updated."
)

// SectionHandlers exposes the generic per-section document read/update
// surface that every editor and renderer calls through.
type SectionHandlers struct {
	sections *storage.SectionStore
	logger   *zap.Logger
}

func NewSectionHandlers(sections *storage.SectionStore, logger *zap.Logger) *SectionHandlers {
	return &SectionHandlers{
		sections: sections,
		logger:   logger,
	}
}

type updateSectionRequest struct {
	Data    json.RawMessage       `json:"data"`
	Heading *model.SectionHeading `json:"heading"`
}

type sectionContent struct {
	Heading model.SectionHeading `json:"heading"`
	Data    json.RawMessage      `json:"data"`
}

// ListSections returns every stored section document; the public home page
// hydrates from this single call instead of one fetch per section.
func (handlers *SectionHandlers) ListSections(context *gin.Context) {
	documents, listErr := handlers.sections.ListSections()
	if listErr != nil {
		handlers.logger.Warn("list_sections", zap.Error(listErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueStorageUnavailable})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, "data": documents})
}

// GetSection returns one section's heading and payload keyed under its
// normalized name, the shape the client-side fetch hook consumes.
func (handlers *SectionHandlers) GetSection(context *gin.Context) {
	sectionName := content.Normalize(context.Param("section"))

	document, loadErr := handlers.sections.GetSection(sectionName)
	if loadErr != nil {
		if errors.Is(loadErr, storage.ErrSectionNotFound) {
			context.JSON(http.StatusNotFound, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueSectionNotFound})
			return
		}
		handlers.logger.Warn("load_section", zap.String("section", sectionName), zap.Error(loadErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueStorageUnavailable})
		return
	}

	context.JSON(http.StatusOK, gin.H{
		jsonKeySuccess: true,
		"groupedData": map[string]sectionContent{
			document.Section: {Heading: document.Heading(), Data: document.Data},
		},
	})
}

// UpdateSection upserts one section: data replaces the stored payload
// wholesale, an omitted heading is preserved.
func (handlers *SectionHandlers) UpdateSection(context *gin.Context) {
	sectionName := content.Normalize(context.Param("section"))

	var payload updateSectionRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidJSON})
		return
	}

	if len(payload.Data) == 0 {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingData})
		return
	}

	document, upsertErr := handlers.sections.UpsertSection(sectionName, storage.SectionUpdate{
		Heading: payload.Heading,
		Data:    payload.Data,
	})
	if upsertErr != nil {
		switch {
		case errors.Is(upsertErr, content.ErrUnknownSection):
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueUnknownSection})
		case errors.Is(upsertErr, content.ErrEmptyPayload),
			errors.Is(upsertErr, content.ErrPayloadShape),
			errors.Is(upsertErr, content.ErrDuplicateItemIdentifier):
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidPayload})
		default:
			handlers.logger.Warn("save_section", zap.String("section", sectionName), zap.Error(upsertErr))
			context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueStorageUnavailable})
		}
		return
	}

	context.JSON(http.StatusOK, gin.H{
		jsonKeySuccess: true,
		jsonKeyMessage: sectionUpdatedMessage,
		"section":      document.Section,
	})
}
