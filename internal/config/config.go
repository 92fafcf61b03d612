package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	Env      string
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka 集群地址（逗号分隔）；通知消息的 Topic 与消费者组
	KafkaBrokers  []string
	NotifyTopic   string
	NotifyGroupID string

	// 通知投递方式：log 只打日志，kafka 投递给 notifier 进程
	NotifySink       string
	NotifyQueueSize  int
	NotifyJobTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	// 启动时确保存在的管理员账号（为空则跳过）
	AdminEmail    string
	AdminPassword string

	// 订单支付窗口与超时清理节奏
	PaymentWindow   time.Duration
	ReaperInterval  time.Duration
	ReaperBatchSize int

	// 下单/支付接口限流
	OrderRateLimit  int
	OrderRateWindow time.Duration

	OtelEndpoint string
}

// Load 读取 API 服务的配置并校验。
func Load() (AppConfig, error) {
	cfg, err := load()
	if err != nil {
		return AppConfig{}, err
	}
	if cfg.JWTSecret == "" {
		return AppConfig{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return AppConfig{}, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return cfg, nil
}

// LoadNotifier notifier 进程只关心 Kafka 相关配置。
func LoadNotifier() (AppConfig, error) {
	cfg, err := load()
	if err != nil {
		return AppConfig{}, err
	}
	if len(cfg.KafkaBrokers) == 0 || cfg.NotifyTopic == "" || cfg.NotifyGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS, NOTIFY_TOPIC and NOTIFY_GROUP_ID are required")
	}
	return cfg, nil
}

// load 先读取 .env（不存在则忽略），再读取环境变量，缺失时使用默认值。
func load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		Env:              getEnv("APP_ENV", "production"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DBPath:           getEnv("DB_PATH", "ecommerce.db"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          0,
		KafkaBrokers:     splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		NotifyTopic:      getEnv("NOTIFY_TOPIC", "ecommerce.notifications"),
		NotifyGroupID:    getEnv("NOTIFY_GROUP_ID", "ecommerce-notifier"),
		NotifySink:       getEnv("NOTIFY_SINK", "log"),
		NotifyQueueSize:  256,
		NotifyJobTimeout: 10 * time.Second,
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTTTL:           7 * 24 * time.Hour,
		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		PaymentWindow:    15 * time.Minute,
		ReaperInterval:   60 * time.Second,
		ReaperBatchSize:  100,
		OrderRateLimit:   20,
		OrderRateWindow:  time.Minute,
		OtelEndpoint:     getEnv("OTEL_ENDPOINT", ""),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", cfg.RedisDB); err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	if cfg.NotifyQueueSize, err = positiveInt("NOTIFY_QUEUE_SIZE", cfg.NotifyQueueSize); err != nil {
		return AppConfig{}, err
	}
	if cfg.NotifyJobTimeout, err = positiveDuration("NOTIFY_JOB_TIMEOUT_SEC", cfg.NotifyJobTimeout, time.Second); err != nil {
		return AppConfig{}, err
	}
	if cfg.JWTTTL, err = positiveDuration("JWT_TTL_HOUR", cfg.JWTTTL, time.Hour); err != nil {
		return AppConfig{}, err
	}
	if cfg.PaymentWindow, err = positiveDuration("PAYMENT_WINDOW_MIN", cfg.PaymentWindow, time.Minute); err != nil {
		return AppConfig{}, err
	}
	if cfg.ReaperInterval, err = positiveDuration("REAPER_INTERVAL_SEC", cfg.ReaperInterval, time.Second); err != nil {
		return AppConfig{}, err
	}
	if cfg.ReaperBatchSize, err = positiveInt("REAPER_BATCH_SIZE", cfg.ReaperBatchSize); err != nil {
		return AppConfig{}, err
	}
	if cfg.OrderRateLimit, err = positiveInt("ORDER_RATE_LIMIT", cfg.OrderRateLimit); err != nil {
		return AppConfig{}, err
	}
	if cfg.OrderRateWindow, err = positiveDuration("ORDER_RATE_WINDOW_SEC", cfg.OrderRateWindow, time.Second); err != nil {
		return AppConfig{}, err
	}

	switch cfg.NotifySink {
	case "log":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty when NOTIFY_SINK=kafka")
		}
		if cfg.NotifyTopic == "" {
			return AppConfig{}, fmt.Errorf("NOTIFY_TOPIC must not be empty")
		}
	default:
		return AppConfig{}, fmt.Errorf("NOTIFY_SINK must be log or kafka, got %q", cfg.NotifySink)
	}

	return cfg, nil
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func positiveInt(key string, fallback int) (int, error) {
	n, err := getEnvInt(key, fallback)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return n, nil
}

// positiveDuration 以 unit 为单位读取整数时长。
func positiveDuration(key string, fallback, unit time.Duration) (time.Duration, error) {
	n, err := positiveInt(key, int(fallback/unit))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}

// splitCSV 将逗号分隔字符串解析为字符串切片。
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
