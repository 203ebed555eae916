package logging

// Viper keys and recognized values for log configuration.
const (
	LogLevel     = "LOG_LEVEL"
	LogLevelProd = "prod"
	LogLevelELK  = "elk"
)
