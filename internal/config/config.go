package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Orders         ServerConfig
	Payments       ServerConfig
	OrdersDB       DatabaseConfig
	PaymentsDB     DatabaseConfig
	Redis          RedisConfig
	RabbitMQ       RabbitMQConfig
	OrderService   ServiceConfig
	ProductService ServiceConfig
	UserService    ServiceConfig
	ServiceSecret  string
	Pricing        PricingConfig
	Features       FeatureFlags
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
	// Reconnect backoff: delay starts at ReconnectBase, doubles per attempt
	// with jitter, and never exceeds ReconnectMax. MaxAttempts of 0 retries
	// until Close.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	MaxAttempts   int
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PricingConfig struct {
	TaxRate          float64
	FlatShippingRate float64
	FreeShippingMin  float64
}

type FeatureFlags struct {
	EnableOrderCaching bool
}

func Load() *Config {
	return &Config{
		Orders: ServerConfig{
			Port:         getEnvInt("ORDERS_PORT", 8083),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Payments: ServerConfig{
			Port:         getEnvInt("PAYMENTS_PORT", 8084),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		OrdersDB:   loadDatabase("ORDERS_DB", "ecommerce_orders"),
		PaymentsDB: loadDatabase("PAYMENTS_DB", "ecommerce_payments"),
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 300)) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			URL:           getEnvString("RABBITMQ_URL", "amqp://localhost:5672"),
			Exchange:      getEnvString("RABBITMQ_EXCHANGE", "ecommerce_events"),
			ReconnectBase: time.Duration(getEnvInt("RABBITMQ_RECONNECT_BASE_MS", 500)) * time.Millisecond,
			ReconnectMax:  time.Duration(getEnvInt("RABBITMQ_RECONNECT_MAX_MS", 30000)) * time.Millisecond,
			MaxAttempts:   getEnvInt("RABBITMQ_MAX_RECONNECT_ATTEMPTS", 0),
		},
		OrderService: ServiceConfig{
			BaseURL: getEnvString("ORDER_SERVICE_URL", "http://localhost:8083"),
			Timeout: time.Duration(getEnvInt("ORDER_SERVICE_TIMEOUT", 30)) * time.Second,
		},
		ProductService: ServiceConfig{
			BaseURL: getEnvString("PRODUCT_SERVICE_URL", "http://localhost:8082"),
			Timeout: time.Duration(getEnvInt("PRODUCT_SERVICE_TIMEOUT", 30)) * time.Second,
		},
		UserService: ServiceConfig{
			BaseURL: getEnvString("USER_SERVICE_URL", "http://localhost:8081"),
			Timeout: time.Duration(getEnvInt("USER_SERVICE_TIMEOUT", 30)) * time.Second,
		},
		ServiceSecret: getEnvString("SERVICE_SECRET", "service_secret_key"),
		Pricing: PricingConfig{
			TaxRate:          getEnvFloat("PRICING_TAX_RATE", 0.15),
			FlatShippingRate: getEnvFloat("PRICING_FLAT_SHIPPING", 10),
			FreeShippingMin:  getEnvFloat("PRICING_FREE_SHIPPING_MIN", 100),
		},
		Features: FeatureFlags{
			EnableOrderCaching: getEnvBool("ENABLE_ORDER_CACHING", true),
		},
	}
}

func loadDatabase(prefix, defaultName string) DatabaseConfig {
	return DatabaseConfig{
		Host:         getEnvString(prefix+"_HOST", "localhost"),
		Port:         getEnvInt(prefix+"_PORT", 5432),
		User:         getEnvString(prefix+"_USER", "ecommerce"),
		Password:     getEnvString(prefix+"_PASSWORD", "ecommerce"),
		Name:         getEnvString(prefix+"_NAME", defaultName),
		SSLMode:      getEnvString(prefix+"_SSLMODE", "disable"),
		MaxOpenConns: getEnvInt(prefix+"_MAX_OPEN_CONNS", 25),
		MaxIdleConns: getEnvInt(prefix+"_MAX_IDLE_CONNS", 5),
		MaxLifetime:  time.Duration(getEnvInt(prefix+"_MAX_LIFETIME_MIN", 30)) * time.Minute,
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
