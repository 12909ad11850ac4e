package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/setwear/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	UserJWT  JWTConfig      `mapstructure:"user_jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Shipping ShippingConfig `mapstructure:"shipping"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置（仅校验外部签发的令牌）
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	QuoteRateLimit RateLimitConfig `mapstructure:"quote_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// ShippingConfig 运费与发货配置
type ShippingConfig struct {
	OriginPincode   string         `mapstructure:"origin_pincode"`
	Couriers        []string       `mapstructure:"couriers"` // 参与比价的快递商，按顺序
	QuoteTTLMinutes int            `mapstructure:"quote_ttl_minutes"`
	Fallback        FallbackConfig `mapstructure:"fallback"`
	DefaultParcel   ParcelConfig   `mapstructure:"default_parcel"`
	IThink          IThinkConfig   `mapstructure:"ithink"`
	Shiport         ShiportConfig  `mapstructure:"shiport"`
	ReturnAddress   AddressConfig  `mapstructure:"return_address"`
	Seller          SellerConfig   `mapstructure:"seller"`
}

// FallbackConfig 按重量兜底运费
type FallbackConfig struct {
	PerKg     string `mapstructure:"per_kg"`
	MinCharge string `mapstructure:"min_charge"`
}

// ParcelConfig 商品缺失尺寸时的默认包裹参数
type ParcelConfig struct {
	WeightKg string `mapstructure:"weight_kg"`
	LengthCm string `mapstructure:"length_cm"`
	WidthCm  string `mapstructure:"width_cm"`
	HeightCm string `mapstructure:"height_cm"`
}

// IThinkConfig iThink Logistics 接入配置
type IThinkConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	BaseURL              string `mapstructure:"base_url"`
	AccessToken          string `mapstructure:"access_token"`
	SecretKey            string `mapstructure:"secret_key"`
	PickupAddressID      string `mapstructure:"pickup_address_id"`
	ReturnAddressID      string `mapstructure:"return_address_id"`
	StoreID              string `mapstructure:"store_id"`
	Logistics            string `mapstructure:"logistics"`
	ServiceType          string `mapstructure:"service_type"`
	Staging              bool   `mapstructure:"staging"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
	CreateTimeoutSeconds int    `mapstructure:"create_timeout_seconds"`
}

// ShiportConfig Shiport 接入配置
type ShiportConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	BaseURL              string `mapstructure:"base_url"`
	SecretKey            string `mapstructure:"secret_key"`
	CustomerID           string `mapstructure:"customer_id"`
	WarehouseName        string `mapstructure:"warehouse_name"`
	AddressID            string `mapstructure:"address_id"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
	CreateTimeoutSeconds int    `mapstructure:"create_timeout_seconds"`
}

// AddressConfig 退货地址
type AddressConfig struct {
	Name    string `mapstructure:"name"`
	Phone   string `mapstructure:"phone"`
	Email   string `mapstructure:"email"`
	Address string `mapstructure:"address"`
	City    string `mapstructure:"city"`
	State   string `mapstructure:"state"`
	Pincode string `mapstructure:"pincode"`
	Country string `mapstructure:"country"`
}

// SellerConfig 发货方信息
type SellerConfig struct {
	CompanyName string `mapstructure:"company_name"`
	HSNCode     string `mapstructure:"hsn_code"`
	TaxRate     string `mapstructure:"tax_rate"`
}

// RazorpayConfig Razorpay 支付配置
type RazorpayConfig struct {
	KeyID          string `mapstructure:"key_id"`
	KeySecret      string `mapstructure:"key_secret"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	BaseURL        string `mapstructure:"base_url"`
	Currency       string `mapstructure:"currency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// WorkerConfig 后台任务配置
type WorkerConfig struct {
	TrackingSyncIntervalSeconds int `mapstructure:"tracking_sync_interval_seconds"`
}

// TrackingSyncInterval 物流轨迹同步间隔，<=0 表示关闭
func (c WorkerConfig) TrackingSyncInterval() time.Duration {
	if c.TrackingSyncIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TrackingSyncIntervalSeconds) * time.Second
}

// QuoteTTL 运费报价缓存时长
func (c ShippingConfig) QuoteTTL() time.Duration {
	if c.QuoteTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.QuoteTTLMinutes) * time.Minute
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnw("dotenv_load_failed", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // shipping.ithink.secret_key -> SHIPPING_ITHINK_SECRET_KEY

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "setwear.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/setwear.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "staff-change-me-in-production")
	v.SetDefault("jwt.expire_hours", 12)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.expire_hours", 168)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sw")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		"default":  5,
		"shipping": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.quote_rate_limit.window_seconds", 60)
	v.SetDefault("security.quote_rate_limit.max_requests", 20)
	v.SetDefault("shipping.origin_pincode", "")
	v.SetDefault("shipping.couriers", []string{"ithink"})
	v.SetDefault("shipping.quote_ttl_minutes", 30)
	v.SetDefault("shipping.fallback.per_kg", "25")
	v.SetDefault("shipping.fallback.min_charge", "40")
	v.SetDefault("shipping.default_parcel.weight_kg", "0.5")
	v.SetDefault("shipping.default_parcel.length_cm", "30")
	v.SetDefault("shipping.default_parcel.width_cm", "25")
	v.SetDefault("shipping.default_parcel.height_cm", "5")
	v.SetDefault("shipping.ithink.enabled", true)
	v.SetDefault("shipping.ithink.base_url", "https://my.ithinklogistics.com/api_v3")
	v.SetDefault("shipping.ithink.logistics", "")
	v.SetDefault("shipping.ithink.service_type", "")
	v.SetDefault("shipping.ithink.staging", false)
	v.SetDefault("shipping.ithink.timeout_seconds", 60)
	v.SetDefault("shipping.ithink.create_timeout_seconds", 300)
	v.SetDefault("shipping.shiport.enabled", false)
	v.SetDefault("shipping.shiport.base_url", "https://api.shiport.in/api/v1")
	v.SetDefault("shipping.shiport.timeout_seconds", 60)
	v.SetDefault("shipping.shiport.create_timeout_seconds", 300)
	v.SetDefault("shipping.return_address.country", "India")
	v.SetDefault("shipping.seller.hsn_code", "6204")
	v.SetDefault("shipping.seller.tax_rate", "5")
	v.SetDefault("razorpay.base_url", "https://api.razorpay.com")
	v.SetDefault("razorpay.currency", "INR")
	v.SetDefault("razorpay.timeout_seconds", 15)
	v.SetDefault("worker.tracking_sync_interval_seconds", 0)
}
