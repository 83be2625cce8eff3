package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/campuswallet/internal/logger"
	"github.com/nkiryanov/campuswallet/internal/service/auth"
	"github.com/nkiryanov/campuswallet/internal/service/payment"
	"github.com/nkiryanov/campuswallet/internal/service/payment/razorpay"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultStoreTimeout   = 5 * time.Second
	defaultGatewayTimeout = 10 * time.Second
	defaultRateLimit      = 10
	defaultRateBurst      = 20
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the wallet service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Signs session tokens (JWT, symmetric)
	SecretKey string

	// Environment
	Environment string

	// Only emails of this domain may use the wallet
	AllowedEmailDomain string

	// Payment gateway API and its key pair
	RazorpayURL       string
	RazorpayKeyID     string
	RazorpayKeySecret string

	// Top-up currency
	Currency string

	// Bounds for one store operation and one gateway call
	StoreTimeout   time.Duration
	GatewayTimeout time.Duration

	// Comma separated Kafka brokers for ledger events, events are logged if empty
	KafkaBrokers string

	// Comma separated browser origins of the portal, any if empty
	CORSOrigins string

	// Requests per second and burst for one client, zero limit disables limiting
	RateLimit float64
	RateBurst int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:           defaultLoggingLevel,
		ListenAddr:         defaultListenAddr,
		Environment:        defaultEnvironment,
		AllowedEmailDomain: auth.DefaultAllowedDomain,
		RazorpayURL:        razorpay.DefaultURL,
		Currency:           payment.DefaultCurrency,
		StoreTimeout:       defaultStoreTimeout,
		GatewayTimeout:     defaultGatewayTimeout,
		RateLimit:          defaultRateLimit,
		RateBurst:          defaultRateBurst,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	var errs []error

	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(key string, o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*o = d
		}
	}

	setFloat := func(key string, o *float64) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*o = f
		}
	}
	setInt := func(key string, o *int) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			i, err := strconv.Atoi(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*o = i
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"SECRET_KEY":           setString(&c.SecretKey),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"ALLOWED_EMAIL_DOMAIN": setString(&c.AllowedEmailDomain),
		"RAZORPAY_URL":         setString(&c.RazorpayURL),
		"RAZORPAY_KEY_ID":      setString(&c.RazorpayKeyID),
		"RAZORPAY_KEY_SECRET":  setString(&c.RazorpayKeySecret),
		"CURRENCY":             setString(&c.Currency),
		"STORE_TIMEOUT":        setDuration("STORE_TIMEOUT", &c.StoreTimeout),
		"GATEWAY_TIMEOUT":      setDuration("GATEWAY_TIMEOUT", &c.GatewayTimeout),
		"KAFKA_BROKERS":        setString(&c.KafkaBrokers),
		"CORS_ORIGINS":         setString(&c.CORSOrigins),
		"RATE_LIMIT":           setFloat("RATE_LIMIT", &c.RateLimit),
		"RATE_BURST":           setInt("RATE_BURST", &c.RateBurst),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("campuswallet", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.AllowedEmailDomain, "email-domain", c.AllowedEmailDomain, "Allowed email domain")
	fs.StringVar(&c.RazorpayURL, "razorpay-url", c.RazorpayURL, "Payment gateway API address")
	fs.StringVar(&c.RazorpayKeyID, "razorpay-key-id", c.RazorpayKeyID, "Payment gateway key id")
	fs.StringVar(&c.RazorpayKeySecret, "razorpay-key-secret", c.RazorpayKeySecret, "Payment gateway key secret")
	fs.StringVar(&c.Currency, "currency", c.Currency, "Top-up currency")
	fs.DurationVar(&c.StoreTimeout, "store-timeout", c.StoreTimeout, "Timeout of one store operation")
	fs.DurationVar(&c.GatewayTimeout, "gateway-timeout", c.GatewayTimeout, "Timeout of one gateway call")
	fs.StringVarP(&c.KafkaBrokers, "kafka-brokers", "k", c.KafkaBrokers, "Comma separated Kafka brokers")
	fs.StringVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Comma separated allowed browser origins")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "Requests per second for one client, 0 disables")
	fs.IntVar(&c.RateBurst, "rate-burst", c.RateBurst, "Request burst for one client")

	return fs.Parse(args)
}

// AllowedOrigins splits comma separated CORS origins
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate checks options required to start
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database connection string is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
		errs = append(errs, errors.New("payment gateway key id and secret are required"))
	}
	if c.StoreTimeout <= 0 || c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.RateLimit < 0 || (c.RateLimit > 0 && c.RateBurst < 1) {
		errs = append(errs, errors.New("rate limit must not be negative and burst must be positive"))
	}

	return errors.Join(errs...)
}
