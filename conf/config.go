package conf

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

const configFile = "config.yaml"

var (
	config   *Config
	initOnce sync.Once
)

type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// CheckoutConfig 结账流程相关配置
type CheckoutConfig struct {
	SuccessPath string `yaml:"success_path"` // 支付成功后跳转路径
	APIBaseURL  string `yaml:"api_base_url"` // 结账会话访问后端的地址
}

type LogConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Environment string `yaml:"environment"` // development, production
	Output      string `yaml:"output"`      // console, json
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 秒
}

type RedisConfig struct {
	Address      string `yaml:"address"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	DialTimeout  int    `yaml:"dial_timeout"`  // 秒
	ReadTimeout  int    `yaml:"read_timeout"`  // 秒
	WriteTimeout int    `yaml:"write_timeout"` // 秒
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
}

// Init 加载配置：config.yaml（可选）→ 默认值 → 环境变量覆盖 → 校验
func Init() error {
	var err error
	initOnce.Do(func() {
		config = &Config{}

		// 配置文件是可选的，纯环境变量部署时没有它
		if data, readErr := os.ReadFile(configFile); readErr == nil {
			if err = yaml.Unmarshal(data, config); err != nil {
				return
			}
		}

		applyDefaults()
		loadFromEnv()
		err = validate()
	})
	return err
}

// applyDefaults 补全缺省字段
func applyDefaults() {
	setIfEmpty(&config.Server.Port, "3002")
	setIfEmpty(&config.Server.Host, "0.0.0.0")
	setIfEmpty(&config.Log.Level, "info")
	setIfEmpty(&config.Log.Environment, "development")
	setIfEmpty(&config.Log.Output, "console")
	setIfEmpty(&config.Checkout.SuccessPath, "/payment-success")
	setIfEmpty(&config.Checkout.APIBaseURL, "http://localhost:3002")

	setIfZero(&config.Redis.Port, 6379)
	setIfZero(&config.Redis.DialTimeout, 5)
	setIfZero(&config.Redis.ReadTimeout, 3)
	setIfZero(&config.Redis.WriteTimeout, 3)
	setIfZero(&config.Redis.PoolSize, 10)
	setIfZero(&config.Redis.MinIdleConns, 5)
}

// loadFromEnv 环境变量优先于文件配置
func loadFromEnv() {
	envString("STRIPE_SECRET_KEY", &config.Stripe.SecretKey)
	envString("PORT", &config.Server.Port)
	envString("API_BASE_URL", &config.Checkout.APIBaseURL)
	envString("DB_PASSWORD", &config.Database.Password)
	envString("REDIS_ADDRESS", &config.Redis.Address)
	envInt("REDIS_PORT", &config.Redis.Port)
	envString("REDIS_PASSWORD", &config.Redis.Password)
	envInt("REDIS_DB", &config.Redis.DB)
	envString("LOG_LEVEL", &config.Log.Level)
	envString("LOG_ENVIRONMENT", &config.Log.Environment)
	envString("LOG_OUTPUT", &config.Log.Output)
}

// validate 缺少 Stripe 密钥直接启动失败，带坏配置的服务只会产出坏意向
func validate() error {
	if config.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is not set")
	}
	return nil
}

func setIfEmpty(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

func setIfZero(target *int, value int) {
	if *target == 0 {
		*target = value
	}
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func GetConf() *Config {
	if config == nil {
		panic("config not initialized")
	}
	return config
}

// SetConfForTesting 测试用：直接注入配置
func SetConfForTesting(c *Config) {
	config = c
}
