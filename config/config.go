/*
Package config loads runtime configuration from the environment.

PURPOSE:
  One place for every tunable: HTTP port, database path, external
  calendar id, the admin identity that batch jobs write holiday rows as,
  and the fixed annual leave grant. A .env file is honored when present
  so development runs need no exported variables.

  The admin identity is deliberately a configuration value handed to the
  components that need it, not a shared package-level default.
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port   int
	DBPath string

	// CalendarBaseURL is the external calendar API root. Empty disables
	// mirroring and inbound event import.
	CalendarBaseURL string

	// CalendarID identifies the external calendar events are mirrored to.
	CalendarID string

	// CalendarToken is the bearer token for the calendar API.
	CalendarToken string

	// FeedURL is the holiday feed endpoint. Empty disables feed import.
	FeedURL string

	// AdminOwnerID attributes holiday rows created by batch jobs.
	AdminOwnerID int64

	// AnnualGrantDays is the fixed per-employee leave grant.
	AnnualGrantDays float64

	// FeedYearsAhead is how many years (current included) each feed
	// import covers.
	FeedYearsAhead int
}

// Load reads configuration from the environment, honoring a .env file
// when one exists.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not read .env file")
	}

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		DBPath:          getEnv("DB_PATH", "leavebridge.db"),
		CalendarBaseURL: getEnv("CALENDAR_BASE_URL", ""),
		CalendarID:      getEnv("CALENDAR_ID", ""),
		CalendarToken:   getEnv("CALENDAR_TOKEN", ""),
		FeedURL:         getEnv("FEED_URL", ""),
		AdminOwnerID:    int64(getEnvAsInt("ADMIN_OWNER_ID", 1)),
		AnnualGrantDays: getEnvAsFloat("ANNUAL_GRANT_DAYS", 12),
		FeedYearsAhead:  getEnvAsInt("FEED_YEARS_AHEAD", 2),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	if val, err := strconv.Atoi(getEnv(name, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	if val, err := strconv.ParseFloat(getEnv(name, ""), 64); err == nil {
		return val
	}
	return defaultVal
}
