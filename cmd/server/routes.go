package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/FolioWorksLab/foliosite/internal/httpapi"
)

const (
	routeHome          = "/"
	routeDashboard     = "/dashboard"
	routeSectionEditor = "/dashboard/sections/:section"

	apiRouteSections      = "/api/all-data"
	apiRouteSection       = "/api/all-data/:section"
	apiRouteSectionUpdate = "/api/all-data/:section/update"
	apiRouteUpload        = "/api/upload"
	apiRouteDeleteImage   = "/api/delete-image"
	apiRouteAuthLogin     = "/api/auth/login"
	apiRouteLoginAlias    = "/api/login"
	apiRouteLogout        = "/api/logout"
	apiRouteChat          = "/api/chat"
	apiRouteAppointment   = "/api/send-appointment"

	corsOriginWildcard       = "*"
	corsHeaderContentType    = "Content-Type"
	corsHeaderAuthorization  = "Authorization"
	corsPreflightMaxAgeHours = 12
)

var (
	corsAllowedMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
)

func registerFrontendRoutes(
	router *gin.Engine,
	authManager *httpapi.AuthManager,
	webHandlers *httpapi.WebHandlers,
) {
	router.GET(routeHome, webHandlers.RenderHomePage)
	router.GET(httpapi.LoginPath, webHandlers.RenderLoginPage)
	router.GET(routeDashboard, authManager.RequireAuthenticatedWeb(), webHandlers.RenderDashboard)
	router.GET(routeSectionEditor, authManager.RequireAuthenticatedWeb(), webHandlers.RenderSectionEditor)
}

func registerBackendRoutes(
	router *gin.Engine,
	authManager *httpapi.AuthManager,
	sectionHandlers *httpapi.SectionHandlers,
	mediaHandlers *httpapi.MediaHandlers,
	chatHandlers *httpapi.ChatHandlers,
	appointmentHandlers *httpapi.AppointmentHandlers,
) {
	apiGroup := router.Group("/")
	apiGroup.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOriginWildcard},
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           corsPreflightMaxAgeHours * time.Hour,
	}))

	apiGroup.GET(apiRouteSections, sectionHandlers.ListSections)
	apiGroup.GET(apiRouteSection, sectionHandlers.GetSection)
	apiGroup.PATCH(apiRouteSectionUpdate, sectionHandlers.UpdateSection)

	apiGroup.POST(apiRouteUpload, mediaHandlers.Upload)
	apiGroup.POST(apiRouteDeleteImage, mediaHandlers.DeleteImage)

	apiGroup.POST(apiRouteAuthLogin, authManager.Login)
	apiGroup.POST(apiRouteLoginAlias, authManager.Login)
	apiGroup.POST(apiRouteLogout, authManager.Logout)

	apiGroup.POST(apiRouteChat, chatHandlers.Chat)
	apiGroup.POST(apiRouteAppointment, appointmentHandlers.CreateAppointment)
}
