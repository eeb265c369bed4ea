package httpapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/model"
)

func renderPage(t *testing.T, api apiHarness, path string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	return recorder
}

func TestHomePageRendersWithDefaultsWhenEmpty(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := renderPage(t, api, "/")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")

	page := resp.Body.String()
	require.Contains(t, page, "<title>Portfolio</title>")
	require.Contains(t, page, "Welcome")
	require.Contains(t, page, "All rights reserved.")
}

func TestHomePageUsesStoredSiteSettings(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	seedSection(t, api.sections, content.SectionWebsite, nil, `{"siteName":"Jane Doe","footerText":"Jane Doe 2026"}`)
	seedSection(t, api.sections, content.SectionHero,
		&model.SectionHeading{Title: "ignored"},
		`{"title":"Hi, I am Jane","subTitle":"Personal trainer"}`)

	page := renderPage(t, api, "/").Body.String()
	require.Contains(t, page, "<title>Jane Doe</title>")
	require.Contains(t, page, "Hi, I am Jane")
	require.Contains(t, page, "Personal trainer")
	require.Contains(t, page, "Jane Doe 2026")
}

func TestHomePageSkipsHiddenSections(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	seedSection(t, api.sections, content.SectionUser, nil, `{"user":"admin","password":"secret"}`)
	seedSection(t, api.sections, "bookingsection", nil, `[{"id":"b1","programName":"Private booking","date":"2026-01-01","contact":"c@example.com"}]`)

	page := renderPage(t, api, "/").Body.String()
	require.NotContains(t, page, "secret")
	require.NotContains(t, page, "Private booking")
}

func TestHomePageBoundsGalleryToNewestItems(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	var items []string
	for itemIndex := 1; itemIndex <= 8; itemIndex++ {
		items = append(items, fmt.Sprintf(`{"id":"g%d","title":"Gallery piece %d"}`, itemIndex, itemIndex))
	}
	seedSection(t, api.sections, content.SectionGallery, nil, "["+strings.Join(items, ",")+"]")

	page := renderPage(t, api, "/").Body.String()
	require.Contains(t, page, "Gallery piece 8")
	require.Contains(t, page, "Gallery piece 3")
	require.NotContains(t, page, "Gallery piece 2")
	require.NotContains(t, page, "Gallery piece 1")
}

func TestLoginPageRendersForm(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := renderPage(t, api, "/login")
	require.Equal(t, http.StatusOK, resp.Code)
	page := resp.Body.String()
	require.Contains(t, page, `id="login-form"`)
	require.Contains(t, page, "/api/auth/login")
}

func TestSectionEditorEmbedsSchema(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	cookie := authenticateAdmin(t, api)

	request := httptest.NewRequest(http.MethodGet, "/dashboard/sections/gallerysection", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	page := recorder.Body.String()
	require.Contains(t, page, "/api/all-data/gallerysection/update")
	require.Contains(t, page, "/api/upload")

	schemaStart := strings.Index(page, `{"section":"gallerysection"`)
	require.GreaterOrEqual(t, schemaStart, 0)
	schemaEnd := strings.Index(page[schemaStart:], ";")
	require.Greater(t, schemaEnd, 0)

	var schema struct {
		Section string `json:"section"`
		Shape   string `json:"shape"`
		Fields  []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(page[schemaStart:schemaStart+schemaEnd]), &schema))
	require.Equal(t, "array", schema.Shape)
	require.Len(t, schema.Fields, 2)
}

func TestSectionEditorScriptKeepsItemIdentityStable(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	cookie := authenticateAdmin(t, api)

	request := httptest.NewRequest(http.MethodGet, "/dashboard/sections/gallerysection", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	page := recorder.Body.String()
	// New items get an identifier the moment they enter local state, so the
	// per-item edit and delete handlers never match more than one item.
	require.Contains(t, page, "record.id = crypto.randomUUID();")
	// A successful save re-fetches the stored document instead of reading
	// item state out of the update response, which only carries the name.
	require.Contains(t, page, "await load();")
	require.NotContains(t, page, "result.section.data")
}

func TestSectionEditorRedirectsForUnknownSection(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	cookie := authenticateAdmin(t, api)

	request := httptest.NewRequest(http.MethodGet, "/dashboard/sections/mysterysection", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusFound, recorder.Code)
	require.Equal(t, "/dashboard", recorder.Header().Get("Location"))
}

func TestDashboardListsEverySection(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})
	cookie := authenticateAdmin(t, api)

	request := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	page := recorder.Body.String()
	for _, spec := range content.All() {
		require.Contains(t, page, "/dashboard/sections/"+spec.Name)
	}
}

func authenticateAdmin(t *testing.T, api apiHarness) *http.Cookie {
	t.Helper()

	seedAdminCredentials(t, api, "admin", "secret")
	loginResp := performJSONRequest(t, api.router, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "admin",
		"password":   "secret",
	}, nil)
	require.Equal(t, http.StatusOK, loginResp.Code)
	cookie := sessionCookie(loginResp)
	require.NotNil(t, cookie)
	return cookie
}
