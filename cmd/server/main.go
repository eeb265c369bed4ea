package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/assistant"
	"github.com/FolioWorksLab/foliosite/internal/httpapi"
	"github.com/FolioWorksLab/foliosite/internal/media"
	"github.com/FolioWorksLab/foliosite/internal/notifications"
	"github.com/FolioWorksLab/foliosite/internal/storage"
)

const (
	commandUseName              = "server"
	commandShortDescription     = "Run the portfolio site server"
	commandLongDescription      = "Launch the portfolio content server with the public site, dashboard, and content API"
	missingConfigurationMessage = "missing required configuration"
	loggerCreationErrorMessage  = "logger"
	logEventListening           = "listening"
	logFieldAddress             = "addr"

	environmentKeyApplicationAddress = "APP_ADDR"
	environmentKeyDatabaseDriver     = "DB_DRIVER"
	environmentKeyDatabaseDataSource = "DB_DSN"
	environmentKeySessionSecret      = "SESSION_SECRET"
	environmentKeyPublicBaseURL      = "PUBLIC_BASE_URL"
	environmentKeyOwnerName          = "OWNER_NAME"
	environmentKeyMediaEndpoint      = "MEDIA_ENDPOINT"
	environmentKeyMediaAccessKey     = "MEDIA_ACCESS_KEY"
	environmentKeyMediaSecretKey     = "MEDIA_SECRET_KEY"
	environmentKeyMediaBucket        = "MEDIA_BUCKET"
	environmentKeyMediaFolder        = "MEDIA_FOLDER"
	environmentKeyMediaPublicBaseURL = "MEDIA_PUBLIC_BASE_URL"
	environmentKeyMediaUseSSL        = "MEDIA_USE_SSL"
	environmentKeySMTPHost           = "SMTP_HOST"
	environmentKeySMTPPort           = "SMTP_PORT"
	environmentKeySMTPUsername       = "SMTP_USERNAME"
	environmentKeySMTPPassword       = "SMTP_PASSWORD"
	environmentKeySMTPFrom           = "SMTP_FROM"
	environmentKeyGeminiAPIKeys      = "GEMINI_API_KEYS"
	environmentKeyGeminiModel        = "GEMINI_MODEL"

	defaultApplicationAddress = ":8080"
	defaultDatabaseDriver     = storage.DriverNameSQLite
	defaultOwnerName          = "the site owner"

	loggerContextOpenDatabase = "open_db"
	loggerContextAutoMigrate  = "migrate"
	loggerContextServer       = "server"
	logEventMediaDisabled     = "media_store_disabled"
	logEventMailerDisabled    = "mailer_disabled"
	logEventAssistantDisabled = "assistant_disabled"

	readHeaderTimeoutSeconds      = 5
	unexpectedArgumentsMessage    = "unexpected command arguments"
	commandInitializationFailure  = "failed to configure command"
	flagNotDefinedMessage         = "flag %s not defined"
	environmentConfigurationError = "failed to apply environment configuration"

	apiKeyListSeparator = ","
)

// configurationOption describes one environment-backed command flag.
type configurationOption struct {
	environmentKey string
	flagName       string
	defaultValue   string
	usage          string
	required       bool
}

var configurationOptions = []configurationOption{
	{environmentKeyApplicationAddress, "app-addr", defaultApplicationAddress, "address for the HTTP server to listen on", false},
	{environmentKeyDatabaseDriver, "db-driver", defaultDatabaseDriver, "database driver name", false},
	{environmentKeyDatabaseDataSource, "db-dsn", "", "database connection string", true},
	{environmentKeySessionSecret, "session-secret", "", "secret for signing dashboard session cookies", true},
	{environmentKeyPublicBaseURL, "public-base-url", "", "externally visible base URL of the site", false},
	{environmentKeyOwnerName, "owner-name", defaultOwnerName, "site owner name used by the assistant persona", false},
	{environmentKeyMediaEndpoint, "media-endpoint", "", "object store endpoint for image uploads", false},
	{environmentKeyMediaAccessKey, "media-access-key", "", "object store access key", false},
	{environmentKeyMediaSecretKey, "media-secret-key", "", "object store secret key", false},
	{environmentKeyMediaBucket, "media-bucket", "", "object store bucket for uploaded images", false},
	{environmentKeyMediaFolder, "media-folder", "", "key prefix for uploaded images", false},
	{environmentKeyMediaPublicBaseURL, "media-public-base-url", "", "public base URL for serving uploaded images", false},
	{environmentKeyMediaUseSSL, "media-use-ssl", "true", "use TLS when talking to the object store", false},
	{environmentKeySMTPHost, "smtp-host", "", "SMTP relay host for appointment notifications", false},
	{environmentKeySMTPPort, "smtp-port", "", "SMTP relay port", false},
	{environmentKeySMTPUsername, "smtp-username", "", "SMTP relay username", false},
	{environmentKeySMTPPassword, "smtp-password", "", "SMTP relay password", false},
	{environmentKeySMTPFrom, "smtp-from", "", "sender address for appointment notifications", false},
	{environmentKeyGeminiAPIKeys, "gemini-api-keys", "", "comma separated Gemini API keys, tried in order", false},
	{environmentKeyGeminiModel, "gemini-model", "", "Gemini model name for the chat assistant", false},
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress string
	DatabaseDriver     string
	DatabaseDataSource string
	SessionSecret      string
	PublicBaseURL      string
	OwnerName          string
	Media              media.Config
	SMTP               notifications.SMTPConfig
	GeminiAPIKeys      []string
	GeminiModel        string
}

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
	}
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	for _, option := range configurationOptions {
		application.configurationLoader.SetDefault(option.environmentKey, option.defaultValue)
		commandFlags.String(option.flagName, option.defaultValue, option.usage)

		if bindErr := application.bindFlag(commandFlags, option.environmentKey, option.flagName); bindErr != nil {
			return bindErr
		}

		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, option.environmentKey, option.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) loadConfiguration() ServerConfig {
	loader := application.configurationLoader
	return ServerConfig{
		ApplicationAddress: loader.GetString(environmentKeyApplicationAddress),
		DatabaseDriver:     strings.TrimSpace(loader.GetString(environmentKeyDatabaseDriver)),
		DatabaseDataSource: strings.TrimSpace(loader.GetString(environmentKeyDatabaseDataSource)),
		SessionSecret:      strings.TrimSpace(loader.GetString(environmentKeySessionSecret)),
		PublicBaseURL:      strings.TrimSpace(loader.GetString(environmentKeyPublicBaseURL)),
		OwnerName:          strings.TrimSpace(loader.GetString(environmentKeyOwnerName)),
		Media: media.Config{
			Endpoint:      strings.TrimSpace(loader.GetString(environmentKeyMediaEndpoint)),
			AccessKey:     strings.TrimSpace(loader.GetString(environmentKeyMediaAccessKey)),
			SecretKey:     strings.TrimSpace(loader.GetString(environmentKeyMediaSecretKey)),
			Bucket:        strings.TrimSpace(loader.GetString(environmentKeyMediaBucket)),
			Folder:        strings.TrimSpace(loader.GetString(environmentKeyMediaFolder)),
			PublicBaseURL: strings.TrimSpace(loader.GetString(environmentKeyMediaPublicBaseURL)),
			UseSSL:        loader.GetBool(environmentKeyMediaUseSSL),
		},
		SMTP: notifications.SMTPConfig{
			Host:        strings.TrimSpace(loader.GetString(environmentKeySMTPHost)),
			Port:        strings.TrimSpace(loader.GetString(environmentKeySMTPPort)),
			Username:    strings.TrimSpace(loader.GetString(environmentKeySMTPUsername)),
			Password:    loader.GetString(environmentKeySMTPPassword),
			FromAddress: strings.TrimSpace(loader.GetString(environmentKeySMTPFrom)),
			FromName:    strings.TrimSpace(loader.GetString(environmentKeyOwnerName)),
		},
		GeminiAPIKeys: splitAPIKeys(loader.GetString(environmentKeyGeminiAPIKeys)),
		GeminiModel:   strings.TrimSpace(loader.GetString(environmentKeyGeminiModel)),
	}
}

func splitAPIKeys(rawKeys string) []string {
	var apiKeys []string
	for _, candidate := range strings.Split(rawKeys, apiKeyListSeparator) {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			apiKeys = append(apiKeys, trimmed)
		}
	}
	return apiKeys
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadConfiguration()
	if validationErr := ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := storage.OpenDatabase(storage.Config{
		DriverName:     serverConfig.DatabaseDriver,
		DataSourceName: serverConfig.DatabaseDataSource,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	sectionStore := storage.NewSectionStore(database)
	authManager := httpapi.NewAuthManager(logger, sectionStore, serverConfig.SessionSecret)

	var mediaStore httpapi.MediaStore
	if serverConfig.Media.Endpoint != "" {
		objectStore, mediaErr := media.NewObjectStore(logger, serverConfig.Media)
		if mediaErr != nil {
			logger.Warn(logEventMediaDisabled, zap.Error(mediaErr))
		} else {
			mediaStore = objectStore
		}
	} else {
		logger.Warn(logEventMediaDisabled)
	}

	var emailSender httpapi.EmailSender
	if serverConfig.SMTP.Host != "" {
		mailer, mailerErr := notifications.NewSMTPMailer(logger, serverConfig.SMTP)
		if mailerErr != nil {
			logger.Warn(logEventMailerDisabled, zap.Error(mailerErr))
		} else {
			emailSender = mailer
		}
	} else {
		logger.Warn(logEventMailerDisabled)
	}

	var chatCompleters []httpapi.ChatCompleter
	if len(serverConfig.GeminiAPIKeys) > 0 {
		completers, assistantErr := assistant.NewCompleterPool(context.Background(), assistant.Config{
			APIKeys:   serverConfig.GeminiAPIKeys,
			ModelName: serverConfig.GeminiModel,
			OwnerName: serverConfig.OwnerName,
		})
		if assistantErr != nil {
			logger.Warn(logEventAssistantDisabled, zap.Error(assistantErr))
		}
		for _, completer := range completers {
			chatCompleters = append(chatCompleters, completer)
		}
	} else {
		logger.Warn(logEventAssistantDisabled)
	}

	sectionHandlers := httpapi.NewSectionHandlers(sectionStore, logger)
	mediaHandlers := httpapi.NewMediaHandlers(mediaStore, logger)
	chatHandlers := httpapi.NewChatHandlers(chatCompleters, logger)
	appointmentHandlers := httpapi.NewAppointmentHandlers(sectionStore, emailSender, serverConfig.SMTP.FromAddress, logger)
	webHandlers := httpapi.NewWebHandlers(sectionStore, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))

	registerFrontendRoutes(router, authManager, webHandlers)
	registerBackendRoutes(router, authManager, sectionHandlers, mediaHandlers, chatHandlers, appointmentHandlers)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.DatabaseDataSource == "" {
		missingParameters = append(missingParameters, environmentKeyDatabaseDataSource)
	}

	if configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, environmentKeySessionSecret)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
