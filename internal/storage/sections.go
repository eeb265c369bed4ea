package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/model"
)

const (
	errorMessageSectionNotFound = "storage: section not found"
	errorMessageLoadSection     = "storage: load section"
	errorMessageListSections    = "storage: list sections"
	errorMessageSaveSection     = "storage: save section"
)

// ErrSectionNotFound indicates no document exists for the requested section name.
var ErrSectionNotFound = errors.New(errorMessageSectionNotFound)

// SectionUpdate carries the fields of a partial section update. A nil Heading
// leaves the stored heading untouched; Data always replaces the stored
// payload wholesale.
type SectionUpdate struct {
	Heading *model.SectionHeading
	Data    json.RawMessage
}

// SectionStore provides durable key-by-name access to section documents.
// Last writer wins; the single-admin deployment has no concurrent-edit
// requirement.
type SectionStore struct {
	database *gorm.DB
}

// NewSectionStore creates a SectionStore over an open database handle.
func NewSectionStore(database *gorm.DB) *SectionStore {
	return &SectionStore{database: database}
}

// GetSection loads one document by case-insensitive section name.
func (store *SectionStore) GetSection(sectionName string) (model.SectionDocument, error) {
	normalizedName := content.Normalize(sectionName)

	var document model.SectionDocument
	loadErr := store.database.First(&document, "section = ?", normalizedName).Error
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			return model.SectionDocument{}, fmt.Errorf("%w: %s", ErrSectionNotFound, normalizedName)
		}
		return model.SectionDocument{}, fmt.Errorf("%s: %w", errorMessageLoadSection, loadErr)
	}

	return document, nil
}

// ListSections returns every stored document, ordered by section name. The
// public page renders from this single call.
func (store *SectionStore) ListSections() ([]model.SectionDocument, error) {
	var documents []model.SectionDocument
	if listErr := store.database.Order("section asc").Find(&documents).Error; listErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageListSections, listErr)
	}
	return documents, nil
}

// UpsertSection validates the payload against the section's registered shape
// and applies update-if-exists, insert-with-defaults-otherwise semantics.
// Only provided top-level fields change on update: an omitted heading is
// preserved, while data always replaces the prior payload.
func (store *SectionStore) UpsertSection(sectionName string, update SectionUpdate) (model.SectionDocument, error) {
	normalizedName := content.Normalize(sectionName)

	validatedPayload, validationErr := content.ValidatePayload(normalizedName, update.Data)
	if validationErr != nil {
		return model.SectionDocument{}, validationErr
	}

	var document model.SectionDocument
	loadErr := store.database.First(&document, "section = ?", normalizedName).Error
	switch {
	case loadErr == nil:
		document.Data = validatedPayload
		if update.Heading != nil {
			document.HeadingTitle = update.Heading.Title
			document.HeadingSubtitle = update.Heading.Subtitle
		}
		if saveErr := store.database.Save(&document).Error; saveErr != nil {
			return model.SectionDocument{}, fmt.Errorf("%s: %w", errorMessageSaveSection, saveErr)
		}
		return document, nil
	case errors.Is(loadErr, gorm.ErrRecordNotFound):
		document = model.SectionDocument{
			ID:      NewID(),
			Section: normalizedName,
			Data:    validatedPayload,
		}
		if update.Heading != nil {
			document.HeadingTitle = update.Heading.Title
			document.HeadingSubtitle = update.Heading.Subtitle
		}
		if createErr := store.database.Create(&document).Error; createErr != nil {
			return model.SectionDocument{}, fmt.Errorf("%s: %w", errorMessageSaveSection, createErr)
		}
		return document, nil
	default:
		return model.SectionDocument{}, fmt.Errorf("%s: %w", errorMessageLoadSection, loadErr)
	}
}
