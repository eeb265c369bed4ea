package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/model"
	"github.com/FolioWorksLab/foliosite/internal/storage"
)

const (
	htmlContentType = "text/html; charset=utf-8"

	publicTemplateName    = "public"
	loginTemplateName     = "login"
	dashboardTemplateName = "dashboard"
	editorTemplateName    = "editor"

	defaultSiteName   = "Portfolio"
	defaultFooterText = "All rights reserved."
	defaultHeroTitle  = "Welcome"

	errorValueRenderFailed = "render_failed"
)

// SectionView is the generic render model: one registered section with its
// stored heading and decoded payload. A missing document renders with
// fallback content instead of blocking the page.
type SectionView struct {
	Spec    content.SectionSpec
	Heading model.SectionHeading
	Object  map[string]any
	Items   []map[string]any
	Found   bool
}

// Field returns an object-section field as a string, empty when absent.
func (view SectionView) Field(fieldName string) string {
	return stringField(view.Object, fieldName)
}

func stringField(record map[string]any, fieldName string) string {
	if record == nil {
		return ""
	}
	switch value := record[fieldName].(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%v", value)
	default:
		return ""
	}
}

// WebHandlers serves the server-rendered public site, login form, and the
// section dashboard.
type WebHandlers struct {
	sections          *storage.SectionStore
	logger            *zap.Logger
	publicTemplate    *template.Template
	loginTemplate     *template.Template
	dashboardTemplate *template.Template
	editorTemplate    *template.Template
}

var templateFunctions = template.FuncMap{
	"field": stringField,
}

func NewWebHandlers(sections *storage.SectionStore, logger *zap.Logger) *WebHandlers {
	return &WebHandlers{
		sections:          sections,
		logger:            logger,
		publicTemplate:    template.Must(template.New(publicTemplateName).Funcs(templateFunctions).Parse(publicTemplateHTML)),
		loginTemplate:     template.Must(template.New(loginTemplateName).Parse(loginTemplateHTML)),
		dashboardTemplate: template.Must(template.New(dashboardTemplateName).Parse(dashboardTemplateHTML)),
		editorTemplate:    template.Must(template.New(editorTemplateName).Funcs(templateFunctions).Parse(editorTemplateHTML)),
	}
}

type publicPageData struct {
	SiteName   string
	FooterText string
	HeroTitle  string
	Sections   []SectionView
}

// RenderHomePage hydrates every section in one store call and renders the
// marketing site with defensive defaults.
func (handlers *WebHandlers) RenderHomePage(context *gin.Context) {
	documents, listErr := handlers.sections.ListSections()
	if listErr != nil {
		// The public page degrades to placeholder content rather than an
		// error page when the store is unreachable.
		handlers.logger.Warn("load_home_sections", zap.Error(listErr))
		documents = nil
	}

	views := buildSectionViews(documents)

	data := publicPageData{
		SiteName:   defaultSiteName,
		FooterText: defaultFooterText,
		HeroTitle:  defaultHeroTitle,
		Sections:   views,
	}
	for _, view := range views {
		if view.Spec.Name == content.SectionWebsite {
			if siteName := view.Field("siteName"); siteName != "" {
				data.SiteName = siteName
			}
			if footerText := view.Field("footerText"); footerText != "" {
				data.FooterText = footerText
			}
		}
		if view.Spec.Name == content.SectionHero {
			if heroTitle := view.Field("title"); heroTitle != "" {
				data.HeroTitle = heroTitle
			}
		}
	}

	handlers.renderTemplate(context, handlers.publicTemplate, data)
}

// buildSectionViews decodes each stored document against the registry, in
// registry order, skipping hidden sections. Array sections are bounded to
// the latest PublicLimit items, newest first.
func buildSectionViews(documents []model.SectionDocument) []SectionView {
	documentsByName := make(map[string]model.SectionDocument, len(documents))
	for _, document := range documents {
		documentsByName[document.Section] = document
	}

	var views []SectionView
	for _, spec := range content.All() {
		if spec.Hidden {
			continue
		}

		view := SectionView{Spec: spec}
		document, found := documentsByName[spec.Name]
		if found {
			view.Found = true
			view.Heading = document.Heading()
			switch spec.Shape {
			case content.ShapeObject:
				var object map[string]any
				if json.Unmarshal(document.Data, &object) == nil {
					view.Object = object
				}
			case content.ShapeArray:
				var items []map[string]any
				if json.Unmarshal(document.Data, &items) == nil {
					view.Items = boundedLatest(items, spec.PublicLimit)
				}
			}
		}
		views = append(views, view)
	}
	return views
}

// boundedLatest returns up to limit items, newest (appended last) first.
func boundedLatest(items []map[string]any, limit int) []map[string]any {
	reversed := make([]map[string]any, 0, len(items))
	for index := len(items) - 1; index >= 0; index-- {
		reversed = append(reversed, items[index])
	}
	if limit > 0 && len(reversed) > limit {
		reversed = reversed[:limit]
	}
	return reversed
}

type loginPageData struct {
	PageTitle     string
	LoginEndpoint string
	DashboardPath string
}

func (handlers *WebHandlers) RenderLoginPage(context *gin.Context) {
	handlers.renderTemplate(context, handlers.loginTemplate, loginPageData{
		PageTitle:     "Sign in",
		LoginEndpoint: "/api/auth/login",
		DashboardPath: DashboardPathPrefix,
	})
}

type dashboardSectionLink struct {
	Name  string
	Label string
	Path  string
}

type dashboardPageData struct {
	PageTitle      string
	LogoutEndpoint string
	LoginPath      string
	Sections       []dashboardSectionLink
}

// RenderDashboard lists every registered section with a link to its editor.
func (handlers *WebHandlers) RenderDashboard(context *gin.Context) {
	var links []dashboardSectionLink
	for _, spec := range content.All() {
		links = append(links, dashboardSectionLink{
			Name:  spec.Name,
			Label: spec.Label,
			Path:  fmt.Sprintf("%s/sections/%s", DashboardPathPrefix, spec.Name),
		})
	}

	handlers.renderTemplate(context, handlers.dashboardTemplate, dashboardPageData{
		PageTitle:      "Dashboard",
		LogoutEndpoint: "/api/logout",
		LoginPath:      LoginPath,
		Sections:       links,
	})
}

type editorPageData struct {
	PageTitle           string
	SectionName         string
	SectionLabel        string
	DashboardPath       string
	SectionEndpoint     string
	UpdateEndpoint      string
	UploadEndpoint      string
	DeleteImageEndpoint string
	SchemaJSON          template.JS
}

type editorFieldSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type editorSchema struct {
	Section string              `json:"section"`
	Shape   string              `json:"shape"`
	Fields  []editorFieldSchema `json:"fields"`
}

// RenderSectionEditor serves the generic editor page for one section. The
// page script fetches the section content, keeps edits local, and saves the
// whole form state with a single PATCH.
func (handlers *WebHandlers) RenderSectionEditor(context *gin.Context) {
	spec, known := content.Lookup(context.Param("section"))
	if !known {
		context.Redirect(http.StatusFound, DashboardPathPrefix)
		context.Abort()
		return
	}

	schema := editorSchema{
		Section: spec.Name,
		Shape:   string(spec.Shape),
		Fields:  make([]editorFieldSchema, 0, len(spec.Fields)),
	}
	for _, fieldSpec := range spec.Fields {
		schema.Fields = append(schema.Fields, editorFieldSchema{
			Name:  fieldSpec.Name,
			Label: fieldSpec.Label,
			Kind:  string(fieldSpec.Kind),
		})
	}

	schemaPayload, marshalErr := json.Marshal(schema)
	if marshalErr != nil {
		handlers.logger.Warn("render_editor_schema", zap.Error(marshalErr))
		schemaPayload = []byte("{}")
	}

	handlers.renderTemplate(context, handlers.editorTemplate, editorPageData{
		PageTitle:           spec.Label,
		SectionName:         spec.Name,
		SectionLabel:        spec.Label,
		DashboardPath:       DashboardPathPrefix,
		SectionEndpoint:     fmt.Sprintf("/api/all-data/%s", spec.Name),
		UpdateEndpoint:      fmt.Sprintf("/api/all-data/%s/update", spec.Name),
		UploadEndpoint:      "/api/upload",
		DeleteImageEndpoint: "/api/delete-image",
		SchemaJSON:          template.JS(schemaPayload),
	})
}

func (handlers *WebHandlers) renderTemplate(context *gin.Context, pageTemplate *template.Template, data any) {
	var buffer bytes.Buffer
	if executeErr := pageTemplate.Execute(&buffer, data); executeErr != nil {
		handlers.logger.Error("render_page", zap.String("template", pageTemplate.Name()), zap.Error(executeErr))
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{jsonKeyError: errorValueRenderFailed})
		return
	}
	context.Data(http.StatusOK, htmlContentType, buffer.Bytes())
}
