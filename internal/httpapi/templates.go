package httpapi

import _ "embed"

//go:embed templates/public.tmpl
var publicTemplateHTML string

//go:embed templates/login.tmpl
var loginTemplateHTML string

//go:embed templates/dashboard.tmpl
var dashboardTemplateHTML string

//go:embed templates/editor.tmpl
var editorTemplateHTML string
