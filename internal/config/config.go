// Package config resolves process configuration from flags, environment and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	"github.com/ovaphlow/pitchfork/service-directory/internal/storage"
)

var (
	ErrDevBypassRefused = errors.New("local dev bypass is only allowed when APP_ENV is local, dev or development")
	ErrIssuerRequired   = errors.New("token verification needs COGNITO_ISSUER or COGNITO_REGION and COGNITO_USER_POOL_ID")
)

// environments where the dev bypass may be switched on
var devEnvironments = map[string]bool{"local": true, "dev": true, "development": true}

type Config struct {
	HTTPAddr     string
	AppEnv       string
	DevBypass    bool
	VerifyTokens bool

	CognitoRegion     string
	CognitoUserPoolID string
	CognitoIssuer     string
	CognitoClientID   string

	Storage storage.Config

	CORSOrigin      string
	InvoiceSchedule string
}

// RegisterFlags declares every setting on fs. Flag names are the lower-case
// form of the environment variable that also sets them.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Optional config file (yaml, json or toml). Environment and flags take precedence.")
	fs.String("http_addr", "0.0.0.0:8431", "Address the HTTP server listens on.")
	fs.String("app_env", "production", "Deployment environment name.")
	fs.Bool("local_dev_bypass", false, "Attach a fixed ADMIN identity to every request. Local development only.")
	fs.Bool("auth_verify_tokens", true, "Verify bearer token signatures against the Cognito JWKS.")
	fs.String("cognito_region", "", "Cognito user pool region. Defaults to aws_region.")
	fs.String("cognito_user_pool_id", "", "Cognito user pool id.")
	fs.String("cognito_issuer", "", "Token issuer URL. Derived from region and pool id when empty.")
	fs.String("cognito_client_id", "", "Expected token audience. Audience is not checked when empty.")
	fs.String("aws_region", "us-east-1", "AWS region of the image bucket.")
	fs.String("s3_bucket_name", "", "Bucket receiving business images.")
	fs.String("s3_endpoint", "", "S3-compatible endpoint host[:port]. Empty means AWS S3.")
	fs.Bool("s3_secure", true, "Use https for s3_endpoint.")
	fs.String("s3_access_key_id", "", "Static access key. The AWS credential chain is used when empty.")
	fs.String("s3_secret_access_key", "", "Static secret key.")
	fs.String("s3_public_base_url", "", "Base URL images are served from. Defaults to the bucket's S3 URL.")
	fs.String("cors_origin", "*", "Allowed CORS origin.")
	fs.String("invoice_schedule", "0 0 9 * * *", "Cron schedule of the invoice job (with seconds field).")
}

// Load reads the settings declared by RegisterFlags. Precedence: flags set
// on the command line, environment, config file, flag defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	region := v.GetString("aws_region")
	cfg := &Config{
		HTTPAddr:          v.GetString("http_addr"),
		AppEnv:            strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		DevBypass:         v.GetBool("local_dev_bypass"),
		VerifyTokens:      v.GetBool("auth_verify_tokens"),
		CognitoRegion:     v.GetString("cognito_region"),
		CognitoUserPoolID: v.GetString("cognito_user_pool_id"),
		CognitoIssuer:     v.GetString("cognito_issuer"),
		CognitoClientID:   v.GetString("cognito_client_id"),
		Storage: storage.Config{
			Bucket:          v.GetString("s3_bucket_name"),
			Region:          region,
			Endpoint:        v.GetString("s3_endpoint"),
			Secure:          v.GetBool("s3_secure"),
			AccessKeyID:     v.GetString("s3_access_key_id"),
			SecretAccessKey: v.GetString("s3_secret_access_key"),
			PublicBaseURL:   v.GetString("s3_public_base_url"),
		},
		CORSOrigin:      v.GetString("cors_origin"),
		InvoiceSchedule: v.GetString("invoice_schedule"),
	}
	if cfg.CognitoRegion == "" {
		cfg.CognitoRegion = region
	}
	return cfg, nil
}

// Issuer is the expected token issuer, or "" when not configured.
func (c *Config) Issuer() string {
	if c.CognitoIssuer != "" {
		return strings.TrimSuffix(c.CognitoIssuer, "/")
	}
	if c.CognitoRegion != "" && c.CognitoUserPoolID != "" {
		return auth.CognitoIssuer(c.CognitoRegion, c.CognitoUserPoolID)
	}
	return ""
}

// Validate refuses unsafe or incomplete combinations.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	if c.DevBypass && !devEnvironments[c.AppEnv] {
		return ErrDevBypassRefused
	}
	if c.VerifyTokens && c.Issuer() == "" {
		return ErrIssuerRequired
	}
	return nil
}
