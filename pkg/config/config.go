package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	p24SandboxAPI     = "https://sandbox.przelewy24.pl/api/v1"
	p24SandboxGateway = "https://sandbox.przelewy24.pl/trnRequest"
	p24ProdAPI        = "https://secure.przelewy24.pl/api/v1"
	p24ProdGateway    = "https://secure.przelewy24.pl/trnRequest"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string
	AutoMigrate bool

	SiteURL string

	SessionSecret []byte
	SessionDir    string
	SessionTTL    time.Duration
	CookieSecure  bool

	AdminEmail    string
	AdminPassword string

	P24 P24Config

	UploadDir string
	UploadURL string

	RedisURL string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	Minio MinioConfig
	SMTP  SMTPConfig
}

type P24Config struct {
	MerchantID int
	PosID      int
	CRC        string
	APIKey     string
	TestMode   bool
	APIURL     string
	GatewayURL string
	ReturnURL  string
	StatusURL  string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func Load() Config {
	siteURL := strings.TrimRight(EnvDefault("SITE_URL", "http://localhost:5173"), "/")
	testMode := EnvBoolDefault("P24_TEST_MODE", true)

	apiURL, gatewayURL := p24ProdAPI, p24ProdGateway
	if testMode {
		apiURL, gatewayURL = p24SandboxAPI, p24SandboxGateway
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "shop"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AutoMigrate: EnvBoolDefault("DB_AUTO_MIGRATE", true),

		SiteURL: siteURL,

		SessionSecret: []byte(os.Getenv("SESSION_SECRET")),
		SessionDir:    EnvDefault("SESSION_DIR", os.TempDir()),
		SessionTTL:    8 * time.Hour,
		CookieSecure:  EnvBoolDefault("COOKIE_SECURE", true),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		P24: P24Config{
			MerchantID: EnvIntDefault("P24_MERCHANT_ID", 0),
			PosID:      EnvIntDefault("P24_POS_ID", 0),
			CRC:        os.Getenv("P24_CRC"),
			APIKey:     os.Getenv("P24_API_KEY"),
			TestMode:   testMode,
			APIURL:     strings.TrimRight(EnvDefault("P24_API_URL", apiURL), "/"),
			GatewayURL: strings.TrimRight(EnvDefault("P24_GATEWAY_URL", gatewayURL), "/"),
			ReturnURL:  EnvDefault("P24_RETURN_URL", siteURL+"/potwierdzenie"),
			StatusURL:  EnvDefault("P24_STATUS_URL", siteURL+"/api/payment?action=verify"),
		},

		UploadDir: EnvDefault("UPLOAD_DIR", "./uploads/products"),
		UploadURL: EnvDefault("UPLOAD_URL", "/uploads/products/"),

		RedisURL: os.Getenv("REDIS_URL"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    EnvDefault("MINIO_BUCKET", "products"),
			UseSSL:    EnvBoolDefault("MINIO_USE_SSL", false),
			PublicURL: strings.TrimRight(os.Getenv("MINIO_PUBLIC_URL"), "/"),
		},

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     EnvIntDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     EnvDefault("MAIL_FROM", "sklep@lulocustoms.pl"),
		},
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
