package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/articles-feed-api/shared/mailer"
)

// AccountServiceConfig is the process configuration of the account service. It is read once at startup
// and treated as read-only afterwards.
type AccountServiceConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"account-service"`
	ServiceID   string `env:"SERVICE_ID"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	LogPretty   bool   `env:"LOG_PRETTY"   envDefault:"false"`

	HTTPAddr       string `env:"HTTP_ADDR"        envDefault:":8080"`
	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR" envDefault:":9090"`

	// FrontendURL is the base of verification and reset links sent by email.
	FrontendURL string `env:"FRONTEND_URL,required"`

	Mongo     MongoConfig
	Token     TokenConfig
	OTP       OTPConfig
	Mail      MailConfig
	SMTP      mailer.Config
	Discovery DiscoveryConfig

	FollowReconcileInterval time.Duration `env:"FOLLOW_RECONCILE_INTERVAL" envDefault:"0"`
}

type MongoConfig struct {
	URI              string        `env:"MONGO_URI"               envDefault:"mongodb://localhost:27017"`
	Database         string        `env:"MONGO_DATABASE"          envDefault:"articles_feed"`
	OperationTimeout time.Duration `env:"MONGO_OPERATION_TIMEOUT" envDefault:"5s"`
	Transactions     bool          `env:"MONGO_TRANSACTIONS"      envDefault:"false"`
}

type TokenConfig struct {
	Secret    string        `env:"JWT_SECRET,required"`
	Issuer    string        `env:"JWT_ISSUER"     envDefault:"articles-feed"`
	ExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"100h"`
}

type OTPConfig struct {
	VerificationTTL  time.Duration `env:"OTP_VERIFICATION_TTL"   envDefault:"30m"`
	PasswordResetTTL time.Duration `env:"OTP_PASSWORD_RESET_TTL" envDefault:"10m"`
}

// MailConfig selects how notifications leave the request path. With RedisAddr set, messages go through
// the Redis mail queue; otherwise they are buffered for a fixed pool of SMTP workers and dropped when the
// buffer is full.
type MailConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	QueueKey      string        `env:"MAIL_QUEUE_KEY"   envDefault:"mailqueue:outbound"`
	SendTimeout   time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"10s"`
	Concurrency   int           `env:"MAIL_CONCURRENCY"  envDefault:"4"`
	BufferSize    int           `env:"MAIL_BUFFER_SIZE"  envDefault:"256"`
}

type DiscoveryConfig struct {
	ConsulAddr    string `env:"CONSUL_ADDR"`
	AdvertiseHost string `env:"SERVICE_ADVERTISE_HOST" envDefault:"localhost"`
}

// Load parses the configuration from environment variables and validates it.
func Load() (*AccountServiceConfig, error) {
	cfg, err := env.ParseAs[AccountServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.ServiceID == "" {
		cfg.ServiceID = cfg.ServiceName
	}

	return &cfg, nil
}

func (c *AccountServiceConfig) validate() error {
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		return fmt.Errorf("invalid FRONTEND_URL: %w", err)
	}
	if len(c.Token.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.Token.ExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if c.OTP.VerificationTTL <= 0 || c.OTP.PasswordResetTTL <= 0 {
		return fmt.Errorf("OTP TTLs must be positive")
	}
	if c.Mongo.OperationTimeout <= 0 {
		return fmt.Errorf("MONGO_OPERATION_TIMEOUT must be positive")
	}
	if c.Mail.Concurrency <= 0 || c.Mail.BufferSize < 0 {
		return fmt.Errorf("MAIL_CONCURRENCY must be positive and MAIL_BUFFER_SIZE not negative")
	}
	if err := c.SMTP.Validate(); err != nil {
		return err
	}

	return nil
}
