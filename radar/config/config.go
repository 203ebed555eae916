package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob for one dashboard-mining run. Values come from
// the environment with working defaults; a .env file is honored when present.
type Config struct {
	// Dashboard access
	DashboardURL string
	LoginURL     string
	Email        string
	Password     string

	// Browser behavior
	Headless       bool
	NavTimeout     time.Duration
	DelayMin       time.Duration
	DelayMax       time.Duration
	MaxRetries     int
	RetryBase      time.Duration
	BlockCooldown  time.Duration
	UseProxies     bool
	CookiesFile    string
	ScreenshotsDir string

	// Candidate filtering
	MinImpressions int64
	MaxAgeDays     int
	MaxCards       int
	MaxProducts    int
	VideosPerRow   int

	// Google Sheets
	SpreadsheetID   string
	CredentialsFile string
	DraftSheet      string
	SuccessSheet    string

	// Service mode
	MongoURI  string
	Database  string
	HTTPPort  string
	Workers   int
	OpenAIKey string
}

func Load() Config {
	// Best effort; the environment wins over the file.
	_ = godotenv.Load()

	return Config{
		DashboardURL: getEnv("DASHBOARD_URL", "https://www.pipiads.com/en/tiktok-shop-product?time=7&search_type=1&sales_trend=1&current_page=1&page_size=20&sort=5&sort_type=desc"),
		LoginURL:     getEnv("DASHBOARD_LOGIN_URL", "https://www.pipiads.com/en/login"),
		Email:        getEnv("DASHBOARD_EMAIL", ""),
		Password:     getEnv("DASHBOARD_PASSWORD", ""),

		Headless:       getEnvBool("BROWSER_HEADLESS", true),
		NavTimeout:     getEnvDuration("BROWSER_TIMEOUT", 30*time.Second),
		DelayMin:       getEnvDuration("RANDOM_DELAY_MIN", 2*time.Second),
		DelayMax:       getEnvDuration("RANDOM_DELAY_MAX", 5*time.Second),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBase:      getEnvDuration("RETRY_DELAY_BASE", 2*time.Second),
		BlockCooldown:  getEnvDuration("BLOCK_COOLDOWN", time.Minute),
		UseProxies:     getEnvBool("USE_PROXIES", false),
		CookiesFile:    getEnv("COOKIES_FILE", "config/cookies.json"),
		ScreenshotsDir: getEnv("SCREENSHOTS_DIR", "screenshots"),

		MinImpressions: int64(getEnvInt("MIN_IMPRESSIONS", 5000)),
		MaxAgeDays:     getEnvInt("DAYS_BACK", 30),
		MaxCards:       getEnvInt("MAX_CARDS", 50),
		MaxProducts:    getEnvInt("MAX_PRODUCTS", 3),
		VideosPerRow:   getEnvInt("VIDEOS_PER_ROW", 3),

		SpreadsheetID:   getEnv("GOOGLE_SHEETS_ID", ""),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "config/google-credentials.json"),
		DraftSheet:      getEnv("SHEET_DRAFT", "Draft"),
		SuccessSheet:    getEnv("SHEET_SUCCESS", "Success"),

		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database:  getEnv("DB_NAME", "productradar"),
		HTTPPort:  getEnv("PORT", "3001"),
		Workers:   getEnvInt("WORKERS", 1),
		OpenAIKey: getEnv("OPENAI_API_KEY", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration reads a duration; bare integers are taken as seconds to
// match the original deployment's env files.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
