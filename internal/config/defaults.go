package config

import "time"

const (
	DefaultConfigPath     = "dgwatch.yaml"
	DefaultTransport      = "smtp"
	DefaultSMTPPort       = 587
	DefaultEncryption     = "auto"
	DefaultReportPath     = "logs/daily_report.html"
	DefaultLogDir         = "logs"
	DefaultRunHour        = 8
	DefaultRunMinute      = 0
	DefaultErrorPatterns  = "error,warning,danger,failed,ORA-,TNS-"
	DefaultScriptTimeout  = 10 * time.Minute
	DefaultScriptEncoding = "utf-8"
	DefaultDotEnvFile     = ".env"
)

// Secret environment variables. Secrets are never read from the config file.
const (
	EnvEmailPassword = "DGWATCH_EMAIL_PASSWORD"
	EnvMailgunAPIKey = "DGWATCH_MAILGUN_API_KEY"
)

var validTransports = map[string]bool{
	"smtp":    true,
	"mailgun": true,
}

var validEncryptions = map[string]bool{
	"auto":     true,
	"none":     true,
	"ssl":      true,
	"starttls": true,
}

var validEncodings = map[string]bool{
	"utf-8": true,
	"gbk":   true,
}
