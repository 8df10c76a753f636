package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// SMS provider selector values
const (
	SMSProviderConsole = "console"
	SMSProviderTwilio  = "twilio"
	SMSProviderMSG91   = "msg91"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Redis configuration
	RedisURI      string `json:"redis_uri"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Collection names
	ChallengeCollection string `json:"mongo_challenge_collection"`
	IdentityCollection  string `json:"mongo_identity_collection"`

	// OTP configuration
	OTPCodeTTL     time.Duration `json:"otp_code_ttl"`
	OTPCodeLength  int           `json:"otp_code_length"`
	OTPMaxAttempts int           `json:"otp_max_attempts"`
	OTPCodePepper  string        `json:"-"`

	// SMS dispatch configuration
	SMSProvider       string `json:"sms_provider"`
	SMSSendsPerMinute int    `json:"sms_sends_per_minute"`
	SMSDailyLimit     int    `json:"sms_daily_limit"`

	// Twilio credentials
	TwilioAccountSID string `json:"-"`
	TwilioAuthToken  string `json:"-"`
	TwilioFromNumber string `json:"twilio_from_number"`

	// MSG91 credentials
	MSG91AuthKey    string `json:"-"`
	MSG91TemplateID string `json:"msg91_template_id"`
	MSG91SenderID   string `json:"msg91_sender_id"`

	// Credential issuance
	JWTSecret string        `json:"-"`
	JWTTTL    time.Duration `json:"jwt_ttl"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	otpCodeTTL, err := time.ParseDuration(getEnvOrDefault("OTP_CODE_TTL", "5m"))
	if err != nil {
		return fmt.Errorf("invalid OTP_CODE_TTL: %w", err)
	}

	otpCodeLength, err := strconv.Atoi(getEnvOrDefault("OTP_CODE_LENGTH", "6"))
	if err != nil {
		return fmt.Errorf("invalid OTP_CODE_LENGTH: %w", err)
	}
	if otpCodeLength < 4 || otpCodeLength > 8 {
		return fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 8, got %d", otpCodeLength)
	}

	otpMaxAttempts, err := strconv.Atoi(getEnvOrDefault("OTP_MAX_ATTEMPTS", "5"))
	if err != nil {
		return fmt.Errorf("invalid OTP_MAX_ATTEMPTS: %w", err)
	}

	smsSendsPerMinute, err := strconv.Atoi(getEnvOrDefault("SMS_SENDS_PER_MINUTE", "60"))
	if err != nil {
		return fmt.Errorf("invalid SMS_SENDS_PER_MINUTE: %w", err)
	}

	smsDailyLimit, err := strconv.Atoi(getEnvOrDefault("SMS_DAILY_LIMIT", "10"))
	if err != nil {
		return fmt.Errorf("invalid SMS_DAILY_LIMIT: %w", err)
	}

	jwtTTL, err := time.ParseDuration(getEnvOrDefault("JWT_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	otpCodePepper := os.Getenv("OTP_CODE_PEPPER")
	if otpCodePepper == "" {
		return fmt.Errorf("OTP_CODE_PEPPER environment variable is required")
	}

	smsProvider := getEnvOrDefault("SMS_PROVIDER", SMSProviderConsole)
	switch smsProvider {
	case SMSProviderConsole, SMSProviderTwilio, SMSProviderMSG91:
	default:
		return fmt.Errorf("invalid SMS_PROVIDER: %q", smsProvider)
	}

	AppConfig = &Config{
		// Server configuration
		Port:        port,
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// MongoDB configuration
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "otp"),

		// Redis configuration
		RedisURI:      getEnvOrDefault("REDIS_URI", "redis://localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		// Collection names
		ChallengeCollection: getEnvOrDefault("MONGODB_CHALLENGE_COLLECTION", "otp_challenges"),
		IdentityCollection:  getEnvOrDefault("MONGODB_IDENTITY_COLLECTION", "identities"),

		// OTP configuration
		OTPCodeTTL:     otpCodeTTL,
		OTPCodeLength:  otpCodeLength,
		OTPMaxAttempts: otpMaxAttempts,
		OTPCodePepper:  otpCodePepper,

		// SMS dispatch configuration
		SMSProvider:       smsProvider,
		SMSSendsPerMinute: smsSendsPerMinute,
		SMSDailyLimit:     smsDailyLimit,

		// Twilio credentials
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),

		// MSG91 credentials
		MSG91AuthKey:    os.Getenv("MSG91_AUTH_KEY"),
		MSG91TemplateID: os.Getenv("MSG91_TEMPLATE_ID"),
		MSG91SenderID:   os.Getenv("MSG91_SENDER_ID"),

		// Credential issuance
		JWTSecret: jwtSecret,
		JWTTTL:    jwtTTL,

		// Tracing configuration
		TracingEnabled:  getEnvOrDefault("TRACING_ENABLED", "false") == "true",
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
