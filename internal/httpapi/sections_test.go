package httpapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/model"
)

func TestHeroSaveRoundTrip(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	saveResp := performJSONRequest(t, api.router, http.MethodPatch, "/api/all-data/herosection/update", map[string]any{
		"heading": map[string]string{"title": "Welcome", "subtitle": "to my site"},
		"data":    map[string]string{"title": "Hello", "subTitle": "World"},
	}, nil)
	require.Equal(t, http.StatusOK, saveResp.Code)
	saved := decodeJSONBody(t, saveResp)
	require.Equal(t, true, saved["success"])
	require.Equal(t, "Section updated.", saved["message"])
	require.Equal(t, "herosection", saved["section"])

	getResp := performJSONRequest(t, api.router, http.MethodGet, "/api/all-data/herosection", nil, nil)
	require.Equal(t, http.StatusOK, getResp.Code)

	var fetched struct {
		Success     bool `json:"success"`
		GroupedData map[string]struct {
			Heading model.SectionHeading `json:"heading"`
			Data    json.RawMessage      `json:"data"`
		} `json:"groupedData"`
	}
	require.NoError(t, json.Unmarshal(getResp.Body.Bytes(), &fetched))
	require.True(t, fetched.Success)
	grouped, found := fetched.GroupedData["herosection"]
	require.True(t, found)
	require.Equal(t, "Welcome", grouped.Heading.Title)
	require.JSONEq(t, `{"title":"Hello","subTitle":"World"}`, string(grouped.Data))
}

func TestUpdateSectionRequiresData(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := performJSONRequest(t, api.router, http.MethodPatch, "/api/all-data/herosection/update", map[string]any{
		"heading": map[string]string{"title": "Only heading"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "missing_data", decodeJSONBody(t, resp)["error"])
}

func TestUpdateSectionRejectsUnknownSection(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := performJSONRequest(t, api.router, http.MethodPatch, "/api/all-data/mysterysection/update", map[string]any{
		"data": map[string]string{"title": "x"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "unknown_section", decodeJSONBody(t, resp)["error"])
}

func TestUpdateSectionRejectsShapeMismatch(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := performJSONRequest(t, api.router, http.MethodPatch, "/api/all-data/gallerysection/update", map[string]any{
		"data": map[string]string{"title": "not a list"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "invalid_payload", decodeJSONBody(t, resp)["error"])
}

func TestGetSectionReturnsNotFound(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := performJSONRequest(t, api.router, http.MethodGet, "/api/all-data/aboutsection", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "section_not_found", decodeJSONBody(t, resp)["error"])
}

func TestListSectionsReturnsAllStoredDocuments(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	seedSection(t, api.sections, content.SectionHero, nil, `{"title":"Hello"}`)
	seedSection(t, api.sections, content.SectionAbout, nil, `{"description":"hi"}`)

	resp := performJSONRequest(t, api.router, http.MethodGet, "/api/all-data", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var listed struct {
		Success bool `json:"success"`
		Data    []struct {
			Section string `json:"section"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listed))
	require.True(t, listed.Success)
	require.Len(t, listed.Data, 2)
	require.Equal(t, content.SectionAbout, listed.Data[0].Section)
	require.Equal(t, content.SectionHero, listed.Data[1].Section)
}

func TestGalleryItemDeletePersistsRemainingItems(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	seedSection(t, api.sections, content.SectionGallery, nil, `[
		{"id":"a","title":"First"},
		{"id":"b","title":"Second"},
		{"id":"c","title":"Third"}
	]`)

	items := sectionItems(t, api.sections, content.SectionGallery)
	require.Len(t, items, 3)

	var remaining []map[string]any
	for _, item := range items {
		if item["id"] == "b" {
			continue
		}
		remaining = append(remaining, item)
	}

	resp := performJSONRequest(t, api.router, http.MethodPatch, "/api/all-data/gallerysection/update", map[string]any{
		"data": remaining,
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	stored := sectionItems(t, api.sections, content.SectionGallery)
	require.Len(t, stored, 2)
	for _, item := range stored {
		require.NotEqual(t, "b", item["id"])
	}
}

func TestUpdateSectionAssignsIdentifiersToNewItems(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := performJSONRequest(t, api.router, http.MethodPatch, "/api/all-data/skillsection/update", map[string]any{
		"data": []map[string]string{
			{"name": "Go", "level": "advanced"},
			{"name": "SQL", "level": "intermediate"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	stored := sectionItems(t, api.sections, "skillsection")
	require.Len(t, stored, 2)
	identifiers := map[any]struct{}{}
	for _, item := range stored {
		identifier, hasIdentifier := item["id"].(string)
		require.True(t, hasIdentifier)
		require.NotEmpty(t, identifier)
		identifiers[identifier] = struct{}{}
	}
	require.Len(t, identifiers, 2)
}
