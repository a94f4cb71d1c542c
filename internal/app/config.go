package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"studio_pm/internal/asana"
	"studio_pm/internal/config"
	"studio_pm/internal/mail"
	"studio_pm/internal/notify"
	"studio_pm/internal/settings"
	"studio_pm/internal/tabular"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		// Default based on environment
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// App holds the settings store and lazily-built clients for one invocation.
// Clients are only constructed when a command actually needs them, so
// read-only commands don't demand credentials they never use.
type App struct {
	Settings *settings.Store

	CredentialsFile string
	TokenFile       string
	SplitConfig     string
	Company         string

	Resilience config.ResilienceConfig

	projectStore tabular.Store
	dataStore    tabular.Store
	asanaClient  *asana.Client
}

// New loads the settings store and resolves file paths from the environment.
func New() (*App, error) {
	settingsPath := GetEnvWithDefault("STUDIO_PM_SETTINGS", "studio_pm.yaml")
	store, err := settings.NewStore(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &App{
		Settings:        store,
		CredentialsFile: GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       GetEnvWithDefault("GMAIL_TOKEN_FILE", "gmail_token.json"),
		SplitConfig:     os.Getenv("SPLIT_CONFIG_FILE"),
		Company:         GetEnvWithDefault("COMPANY_NAME", "Norton Interiors"),
		Resilience:      config.DefaultResilienceConfig,
	}, nil
}

// ProjectStore returns the store backing the project spreadsheet, wrapped
// with retry. Built once per invocation.
func (a *App) ProjectStore(ctx context.Context) (tabular.Store, error) {
	if a.projectStore != nil {
		return a.projectStore, nil
	}
	sheetID := a.Settings.Get(settings.KeySheetID)
	if sheetID == "" {
		return nil, fmt.Errorf("%s is not set; run 'studio_pm settings set %s <id>'", settings.KeySheetID, settings.KeySheetID)
	}
	store, err := tabular.NewSheetsStore(ctx, a.CredentialsFile, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	a.projectStore = tabular.NewRetryStore(store, a.Resilience.SheetRead, a.Resilience.SheetWrite)
	return a.projectStore, nil
}

// DataStore returns the store backing the shared data spreadsheet (room and
// item catalogs). Falls back to the project store when DATA_SHEET_ID is not
// configured, which matches single-spreadsheet setups.
func (a *App) DataStore(ctx context.Context) (tabular.Store, error) {
	if a.dataStore != nil {
		return a.dataStore, nil
	}
	dataID := a.Settings.Get(settings.KeyDataSheetID)
	if dataID == "" {
		return a.ProjectStore(ctx)
	}
	store, err := tabular.NewSheetsStore(ctx, a.CredentialsFile, dataID)
	if err != nil {
		return nil, fmt.Errorf("failed to create data sheets client: %w", err)
	}
	a.dataStore = tabular.NewRetryStore(store, a.Resilience.SheetRead, a.Resilience.SheetWrite)
	return a.dataStore, nil
}

// AsanaClient returns the task API client built from the stored token.
func (a *App) AsanaClient() (*asana.Client, error) {
	if a.asanaClient != nil {
		return a.asanaClient, nil
	}
	token := a.Settings.Get(settings.KeyAsanaToken)
	if token == "" {
		return nil, fmt.Errorf("%s is not set; run 'studio_pm settings set %s <token>'", settings.KeyAsanaToken, settings.KeyAsanaToken)
	}
	a.asanaClient = asana.NewClient(token)
	return a.asanaClient, nil
}

// Mailer builds a Gmail-backed mailer from the saved OAuth token, wrapped
// with the mail-send retry policy.
func (a *App) Mailer(ctx context.Context) (mail.Mailer, error) {
	token, err := mail.LoadToken(a.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load gmail token from %s (run 'studio_pm email auth'): %w", a.TokenFile, err)
	}
	gmail, err := mail.NewGmailMailer(ctx, mail.NewOAuthConfig(), token)
	if err != nil {
		return nil, err
	}
	return mail.NewRetryMailer(gmail, a.Resilience.MailSend), nil
}

// NotifyClient creates and returns the notification client.
func (a *App) NotifyClient() *notify.Client {
	enabled := GetEnvWithDefault("NTFY_ENABLED", "false") == "true"
	baseURL := GetEnvWithDefault("NTFY_URL", "https://ntfy.sh")
	topic := GetEnvWithDefault("NTFY_TOPIC", "studio-pm")

	log.Debug().
		Bool("enabled", enabled).
		Str("base_url", baseURL).
		Str("topic", topic).
		Msg("Initializing notification client")

	client := notify.NewClient(baseURL, topic, enabled, "default", 3, 1*time.Second, 30*time.Second)

	if enabled {
		log.Info().Str("topic", topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}
