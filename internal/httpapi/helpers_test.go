package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FolioWorksLab/foliosite/internal/httpapi"
	"github.com/FolioWorksLab/foliosite/internal/model"
	"github.com/FolioWorksLab/foliosite/internal/storage"
	"github.com/FolioWorksLab/foliosite/internal/testutil"
)

const testSessionSecret = "test-session-secret"

type apiHarness struct {
	router   *gin.Engine
	database *gorm.DB
	sections *storage.SectionStore
	auth     *httpapi.AuthManager
}

type harnessOptions struct {
	mediaStore  httpapi.MediaStore
	emailSender httpapi.EmailSender
	completers  []httpapi.ChatCompleter
}

func buildAPIHarness(testingT *testing.T, options harnessOptions) apiHarness {
	testingT.Helper()

	gin.SetMode(gin.TestMode)
	logger, loggerErr := zap.NewDevelopment()
	require.NoError(testingT, loggerErr)

	sqliteDatabase := testutil.NewSQLiteTestDatabase(testingT)
	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(testingT, openErr)
	database = testutil.ConfigureDatabaseLogger(testingT, database)
	require.NoError(testingT, storage.AutoMigrate(database))

	sectionStore := storage.NewSectionStore(database)
	authManager := httpapi.NewAuthManager(logger, sectionStore, testSessionSecret)
	sectionHandlers := httpapi.NewSectionHandlers(sectionStore, logger)
	mediaHandlers := httpapi.NewMediaHandlers(options.mediaStore, logger)
	chatHandlers := httpapi.NewChatHandlers(options.completers, logger)
	appointmentHandlers := httpapi.NewAppointmentHandlers(sectionStore, options.emailSender, "fallback@example.com", logger)
	webHandlers := httpapi.NewWebHandlers(sectionStore, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))

	router.GET("/", webHandlers.RenderHomePage)
	router.GET(httpapi.LoginPath, webHandlers.RenderLoginPage)
	router.GET("/dashboard", authManager.RequireAuthenticatedWeb(), webHandlers.RenderDashboard)
	router.GET("/dashboard/sections/:section", authManager.RequireAuthenticatedWeb(), webHandlers.RenderSectionEditor)

	router.GET("/api/all-data", sectionHandlers.ListSections)
	router.GET("/api/all-data/:section", sectionHandlers.GetSection)
	router.PATCH("/api/all-data/:section/update", sectionHandlers.UpdateSection)
	router.POST("/api/upload", mediaHandlers.Upload)
	router.POST("/api/delete-image", mediaHandlers.DeleteImage)
	router.POST("/api/auth/login", authManager.Login)
	router.POST("/api/logout", authManager.Logout)
	router.POST("/api/chat", chatHandlers.Chat)
	router.POST("/api/send-appointment", appointmentHandlers.CreateAppointment)

	return apiHarness{
		router:   router,
		database: database,
		sections: sectionStore,
		auth:     authManager,
	}
}

func performJSONRequest(testingT *testing.T, router *gin.Engine, method string, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	testingT.Helper()

	var requestBody io.Reader
	if body != nil {
		encoded, encodeErr := json.Marshal(body)
		require.NoError(testingT, encodeErr)
		requestBody = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, requestBody)
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSONBody(testingT *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	testingT.Helper()

	var decoded map[string]any
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	return decoded
}

func seedSection(testingT *testing.T, sections *storage.SectionStore, sectionName string, heading *model.SectionHeading, payload string) {
	testingT.Helper()

	_, upsertErr := sections.UpsertSection(sectionName, storage.SectionUpdate{
		Heading: heading,
		Data:    json.RawMessage(payload),
	})
	require.NoError(testingT, upsertErr)
}

func sectionItems(testingT *testing.T, sections *storage.SectionStore, sectionName string) []map[string]any {
	testingT.Helper()

	document, loadErr := sections.GetSection(sectionName)
	require.NoError(testingT, loadErr)

	var items []map[string]any
	require.NoError(testingT, json.Unmarshal(document.Data, &items))
	return items
}
