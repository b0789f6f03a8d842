package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/stavros/internal/flagx"
	"github.com/dmitrijs2005/stavros/internal/timex"
)

// JsonConfig is the shape of the optional JSON config file. Durations use
// timex.Duration so both "72h" and integer nanoseconds are accepted.
// Absent keys leave the corresponding Config field unchanged.
type JsonConfig struct {
	Environment                       string          `json:"environment"`
	EndpointAddrHTTP                  string          `json:"endpoint_addr_http"`
	BaseURL                           string          `json:"base_url"`
	DatabaseDSN                       string          `json:"database_dsn"`
	SecretKey                         string          `json:"secret_key"`
	AccessTokenValidityDuration       *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      *timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration *timex.Duration `json:"verification_token_validity_duration"`
	JanitorInterval                   *timex.Duration `json:"janitor_interval"`
	AutoMigrate                       *bool           `json:"auto_migrate"`
	RedisAddr                         string          `json:"redis_addr"`
	RedisPassword                     string          `json:"redis_password"`
	RedisDB                           *int            `json:"redis_db"`
	RateLimitPerMinute                *int            `json:"rate_limit_per_minute"`
	S3RootUser                        string          `json:"s3_root_user"`
	S3RootPassword                    string          `json:"s3_root_password"`
	S3Bucket                          string          `json:"s3_bucket"`
	S3Region                          string          `json:"s3_region"`
	S3BaseEndpoint                    string          `json:"s3_base_endpoint"`
	SMTPAddr                          string          `json:"smtp_addr"`
	SMTPUser                          string          `json:"smtp_user"`
	SMTPPassword                      string          `json:"smtp_password"`
	MailFrom                          string          `json:"mail_from"`
	SentryDSN                         string          `json:"sentry_dsn"`
	LogLevel                          string          `json:"log_level"`
	LogFormat                         string          `json:"log_format"`
}

// parseJson loads the file named by -c/-config in args, if any, and copies
// its non-empty values into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	setString(&config.Environment, c.Environment)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.VerificationTokenValidityDuration != nil {
		config.VerificationTokenValidityDuration = c.VerificationTokenValidityDuration.Duration
	}
	if c.JanitorInterval != nil {
		config.JanitorInterval = c.JanitorInterval.Duration
	}
	if c.AutoMigrate != nil {
		config.AutoMigrate = *c.AutoMigrate
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.RateLimitPerMinute != nil {
		config.RateLimitPerMinute = *c.RateLimitPerMinute
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.SentryDSN, c.SentryDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
