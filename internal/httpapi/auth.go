package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/storage"
)

const (
	sessionCookieName     = "foliosite_session"
	sessionKeyLoggedIn    = "loggedIn"
	sessionValueLoggedIn  = "true"
	sessionMaxAgeSeconds  = 3600
	bcryptHashPrefix      = "$2"
	credentialsUserField  = "user"
	credentialsPassField  = "password"
	errorValueMissingCred = "missing_credentials"
	errorValueInvalidCred = "invalid_credentials"
	errorValueSessionSave = "session_save_failed"
	logEventLoadSession   = "load_session"
	logEventSaveSession   = "save_session"
	logEventPlaintextCred = "plaintext_stored_password"
)

// AuthManager restricts the dashboard to the single authenticated admin.
// Credentials live in the user section's payload; on a match an HTTP-only
// session cookie marks the browser as logged in for one hour.
type AuthManager struct {
	logger       *zap.Logger
	sessionStore *sessions.CookieStore
	sections     *storage.SectionStore
}

func NewAuthManager(logger *zap.Logger, sections *storage.SectionStore, sessionSecret string) *AuthManager {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAgeSeconds,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &AuthManager{
		logger:       logger,
		sessionStore: store,
		sections:     sections,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type storedCredentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Login compares the submitted credentials against the stored user section
// and establishes the session cookie on a match. A failed attempt never
// touches the cookie.
func (authManager *AuthManager) Login(context *gin.Context) {
	var payload loginRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidJSON})
		return
	}

	payload.Identifier = strings.TrimSpace(payload.Identifier)
	if payload.Identifier == "" || payload.Password == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingCred})
		return
	}

	credentials, credentialsErr := authManager.loadCredentials()
	if credentialsErr != nil {
		// Absent or malformed user section reads as a bad login, not a
		// server fault the caller can distinguish.
		context.JSON(http.StatusUnauthorized, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidCred})
		return
	}

	identifierMatches := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(credentials.User)), []byte(payload.Identifier)) == 1
	if !identifierMatches || !authManager.passwordMatches(credentials.Password, payload.Password) {
		context.JSON(http.StatusUnauthorized, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidCred})
		return
	}

	session, sessionErr := authManager.sessionStore.Get(context.Request, sessionCookieName)
	if sessionErr != nil {
		// A stale or re-keyed cookie still yields a usable new session.
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
	}
	session.Values[sessionKeyLoggedIn] = sessionValueLoggedIn
	if saveErr := session.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueSessionSave})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true})
}

// Logout clears the session by expiring the cookie.
func (authManager *AuthManager) Logout(context *gin.Context) {
	session, sessionErr := authManager.sessionStore.Get(context.Request, sessionCookieName)
	if sessionErr != nil {
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
	}
	delete(session.Values, sessionKeyLoggedIn)
	session.Options.MaxAge = -1
	if saveErr := session.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true})
}

// RequireAuthenticatedWeb redirects unauthenticated dashboard requests to
// the login page.
func (authManager *AuthManager) RequireAuthenticatedWeb() gin.HandlerFunc {
	return func(context *gin.Context) {
		if !authManager.isAuthenticated(context.Request) {
			context.Redirect(http.StatusFound, LoginPath)
			context.Abort()
			return
		}
		context.Next()
	}
}

func (authManager *AuthManager) isAuthenticated(request *http.Request) bool {
	session, sessionErr := authManager.sessionStore.Get(request, sessionCookieName)
	if sessionErr != nil {
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
		return false
	}
	flag, ok := session.Values[sessionKeyLoggedIn].(string)
	return ok && flag == sessionValueLoggedIn
}

func (authManager *AuthManager) loadCredentials() (storedCredentials, error) {
	document, loadErr := authManager.sections.GetSection(content.SectionUser)
	if loadErr != nil {
		return storedCredentials{}, loadErr
	}

	var credentials storedCredentials
	if unmarshalErr := json.Unmarshal(document.Data, &credentials); unmarshalErr != nil {
		return storedCredentials{}, unmarshalErr
	}
	return credentials, nil
}

// passwordMatches accepts a bcrypt hash or, for documents predating hashing,
// a plain stored value compared in constant time.
func (authManager *AuthManager) passwordMatches(storedPassword string, providedPassword string) bool {
	trimmedStored := strings.TrimSpace(storedPassword)
	if trimmedStored == "" {
		return false
	}

	if strings.HasPrefix(trimmedStored, bcryptHashPrefix) {
		return bcrypt.CompareHashAndPassword([]byte(trimmedStored), []byte(providedPassword)) == nil
	}

	authManager.logger.Warn(logEventPlaintextCred)
	return subtle.ConstantTimeCompare([]byte(trimmedStored), []byte(providedPassword)) == 1
}
