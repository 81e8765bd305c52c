package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all tool-wide configuration. The SMTP password and Mailgun
// API key are intentionally absent; they are read from the environment at
// send time.
type Config struct {
	Email    EmailConfig    `yaml:"email"    mapstructure:"email"`
	Paths    PathsConfig    `yaml:"paths"    mapstructure:"paths"`
	Settings SettingsConfig `yaml:"settings" mapstructure:"settings"`
}

// EmailConfig holds the report mail settings.
type EmailConfig struct {
	Transport       string `yaml:"transport"        mapstructure:"transport"`
	SMTPServer      string `yaml:"smtp_server"      mapstructure:"smtp_server"`
	SMTPPort        int    `yaml:"smtp_port"        mapstructure:"smtp_port"`
	SMTPUsername    string `yaml:"smtp_username"    mapstructure:"smtp_username"`
	SenderEmail     string `yaml:"sender_email"     mapstructure:"sender_email"`
	RecipientEmails string `yaml:"recipient_emails" mapstructure:"recipient_emails"`
	UseTLS          bool   `yaml:"use_tls"          mapstructure:"use_tls"`
	Encryption      string `yaml:"encryption"       mapstructure:"encryption"`
	MailgunDomain   string `yaml:"mailgun_domain"   mapstructure:"mailgun_domain"`
}

// Password returns the SMTP password from DGWATCH_EMAIL_PASSWORD.
func (EmailConfig) Password() string {
	return os.Getenv(EnvEmailPassword)
}

// MailgunAPIKey returns the Mailgun key from DGWATCH_MAILGUN_API_KEY.
func (EmailConfig) MailgunAPIKey() string {
	return os.Getenv(EnvMailgunAPIKey)
}

// PathsConfig locates the check scripts and their artifacts.
type PathsConfig struct {
	CheckStandbyBat string `yaml:"check_standby_bat" mapstructure:"check_standby_bat"`
	DailyReportBat  string `yaml:"daily_report_bat"  mapstructure:"daily_report_bat"`
	ReportPath      string `yaml:"report_path"       mapstructure:"report_path"`
	LogDir          string `yaml:"log_dir"           mapstructure:"log_dir"`
	MetricsFile     string `yaml:"metrics_file"      mapstructure:"metrics_file"`
}

// SettingsConfig holds the run behaviour.
type SettingsConfig struct {
	RunHour        int           `yaml:"run_hour"        mapstructure:"run_hour"`
	RunMinute      int           `yaml:"run_minute"      mapstructure:"run_minute"`
	CheckErrors    bool          `yaml:"check_errors"    mapstructure:"check_errors"`
	ErrorPatterns  string        `yaml:"error_patterns"  mapstructure:"error_patterns"`
	AutoSendEmail  bool          `yaml:"auto_send_email" mapstructure:"auto_send_email"`
	ScriptTimeout  time.Duration `yaml:"script_timeout"  mapstructure:"script_timeout"`
	ScriptEncoding string        `yaml:"script_encoding" mapstructure:"script_encoding"`
}

// Load reads configuration from an optional file and environment variables.
// When cfgFile is empty, only defaults and environment variables are used.
// A .env file in the working directory is loaded into the environment
// first; variables already set take precedence.
func Load(cfgFile string) (*Config, error) {
	if err := LoadDotEnv(DefaultDotEnvFile); err != nil {
		return nil, err
	}
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadDotEnv loads path into the process environment if it exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("email.transport", DefaultTransport)
	v.SetDefault("email.smtp_port", DefaultSMTPPort)
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.encryption", DefaultEncryption)
	v.SetDefault("paths.report_path", DefaultReportPath)
	v.SetDefault("paths.log_dir", DefaultLogDir)
	v.SetDefault("settings.run_hour", DefaultRunHour)
	v.SetDefault("settings.run_minute", DefaultRunMinute)
	v.SetDefault("settings.check_errors", true)
	v.SetDefault("settings.error_patterns", DefaultErrorPatterns)
	v.SetDefault("settings.auto_send_email", false)
	v.SetDefault("settings.script_timeout", DefaultScriptTimeout)
	v.SetDefault("settings.script_encoding", DefaultScriptEncoding)

	// DGWATCH_SETTINGS_RUN_HOUR → settings.run_hour.
	v.SetEnvPrefix("DGWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	envBindings := map[string]string{
		"email.transport":          "DGWATCH_EMAIL_TRANSPORT",
		"email.smtp_server":        "DGWATCH_EMAIL_SMTP_SERVER",
		"email.smtp_port":          "DGWATCH_EMAIL_SMTP_PORT",
		"email.smtp_username":      "DGWATCH_EMAIL_SMTP_USERNAME",
		"email.sender_email":       "DGWATCH_EMAIL_SENDER_EMAIL",
		"email.recipient_emails":   "DGWATCH_EMAIL_RECIPIENT_EMAILS",
		"email.use_tls":            "DGWATCH_EMAIL_USE_TLS",
		"email.encryption":         "DGWATCH_EMAIL_ENCRYPTION",
		"email.mailgun_domain":     "DGWATCH_EMAIL_MAILGUN_DOMAIN",
		"paths.check_standby_bat":  "DGWATCH_PATHS_CHECK_STANDBY_BAT",
		"paths.daily_report_bat":   "DGWATCH_PATHS_DAILY_REPORT_BAT",
		"paths.report_path":        "DGWATCH_PATHS_REPORT_PATH",
		"paths.log_dir":            "DGWATCH_PATHS_LOG_DIR",
		"paths.metrics_file":       "DGWATCH_PATHS_METRICS_FILE",
		"settings.run_hour":        "DGWATCH_SETTINGS_RUN_HOUR",
		"settings.run_minute":      "DGWATCH_SETTINGS_RUN_MINUTE",
		"settings.check_errors":    "DGWATCH_SETTINGS_CHECK_ERRORS",
		"settings.error_patterns":  "DGWATCH_SETTINGS_ERROR_PATTERNS",
		"settings.auto_send_email": "DGWATCH_SETTINGS_AUTO_SEND_EMAIL",
		"settings.script_timeout":  "DGWATCH_SETTINGS_SCRIPT_TIMEOUT",
		"settings.script_encoding": "DGWATCH_SETTINGS_SCRIPT_ENCODING",
	}
	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", envVar, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Settings.ScriptEncoding = strings.ToLower(strings.TrimSpace(cfg.Settings.ScriptEncoding))
	return &cfg, nil
}

// Watch reloads cfgFile whenever it changes on disk and hands the result to
// onChange. It returns after the watch is installed.
func Watch(cfgFile string, onChange func(*Config, error)) error {
	if cfgFile == "" {
		return errors.New("watch config: no config file given")
	}
	v, err := newViper(cfgFile)
	if err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err == nil {
			err = cfg.Validate()
		}
		onChange(cfg, err)
	})
	v.WatchConfig()
	return nil
}

// Validate checks that the configuration is semantically correct.
func (c *Config) Validate() error {
	if !validTransports[c.Email.Transport] {
		return fmt.Errorf("invalid email.transport %q: must be smtp or mailgun", c.Email.Transport)
	}
	if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
		return fmt.Errorf("invalid email.smtp_port %d: must be between 1 and 65535", c.Email.SMTPPort)
	}
	if !validEncryptions[strings.ToLower(c.Email.Encryption)] {
		return fmt.Errorf("invalid email.encryption %q: must be one of auto, none, ssl, starttls", c.Email.Encryption)
	}
	if c.Settings.RunHour < 0 || c.Settings.RunHour > 23 {
		return fmt.Errorf("invalid settings.run_hour %d: must be between 0 and 23", c.Settings.RunHour)
	}
	if c.Settings.RunMinute < 0 || c.Settings.RunMinute > 59 {
		return fmt.Errorf("invalid settings.run_minute %d: must be between 0 and 59", c.Settings.RunMinute)
	}
	if !validEncodings[c.Settings.ScriptEncoding] {
		return fmt.Errorf("invalid settings.script_encoding %q: must be utf-8 or gbk", c.Settings.ScriptEncoding)
	}
	if c.Settings.ScriptTimeout <= 0 {
		return fmt.Errorf("invalid settings.script_timeout %s: must be positive", c.Settings.ScriptTimeout)
	}
	return nil
}

// Redacted flattens the configuration into key/value pairs for display,
// with secrets reported only as set or unset.
func (c *Config) Redacted() [][2]string {
	secret := func(env string) string {
		if os.Getenv(env) == "" {
			return "(unset)"
		}
		return "******"
	}
	return [][2]string{
		{"email.transport", c.Email.Transport},
		{"email.smtp_server", c.Email.SMTPServer},
		{"email.smtp_port", fmt.Sprint(c.Email.SMTPPort)},
		{"email.smtp_username", c.Email.SMTPUsername},
		{"email.sender_email", c.Email.SenderEmail},
		{"email.recipient_emails", c.Email.RecipientEmails},
		{"email.use_tls", fmt.Sprint(c.Email.UseTLS)},
		{"email.encryption", c.Email.Encryption},
		{"email.mailgun_domain", c.Email.MailgunDomain},
		{"email.password", secret(EnvEmailPassword)},
		{"email.mailgun_api_key", secret(EnvMailgunAPIKey)},
		{"paths.check_standby_bat", c.Paths.CheckStandbyBat},
		{"paths.daily_report_bat", c.Paths.DailyReportBat},
		{"paths.report_path", c.Paths.ReportPath},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.metrics_file", c.Paths.MetricsFile},
		{"settings.run_hour", fmt.Sprint(c.Settings.RunHour)},
		{"settings.run_minute", fmt.Sprint(c.Settings.RunMinute)},
		{"settings.check_errors", fmt.Sprint(c.Settings.CheckErrors)},
		{"settings.error_patterns", c.Settings.ErrorPatterns},
		{"settings.auto_send_email", fmt.Sprint(c.Settings.AutoSendEmail)},
		{"settings.script_timeout", c.Settings.ScriptTimeout.String()},
		{"settings.script_encoding", c.Settings.ScriptEncoding},
	}
}
