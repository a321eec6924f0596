package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Plan     PlanConfig     `mapstructure:"plan"`
	CRM      CRMConfig      `mapstructure:"crm"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// GatewayConfig 支付网关配置
// 环境选择只由 mode 配置驱动，不根据请求数据推断
type GatewayConfig struct {
	Mode string           `mapstructure:"mode"` // test, live
	Test GatewayEnvConfig `mapstructure:"test"`
	Live GatewayEnvConfig `mapstructure:"live"`
}

type GatewayEnvConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APILogin       string `mapstructure:"api_login"`
	TransactionKey string `mapstructure:"transaction_key"`
}

// Env 返回当前模式对应的网关环境配置
func (g *GatewayConfig) Env() GatewayEnvConfig {
	if g.Mode == "live" {
		return g.Live
	}
	return g.Test
}

// IsLive 是否为生产环境
func (g *GatewayConfig) IsLive() bool {
	return g.Mode == "live"
}

// PlanConfig 分期付款计划规则
type PlanConfig struct {
	MaxInstallments       int     `mapstructure:"max_installments"`         // 最大期数
	MinInstallmentAmount  float64 `mapstructure:"min_installment_amount"`   // 单期最低金额
	FirstChargeOffsetDays int     `mapstructure:"first_charge_offset_days"` // 首次循环扣款距今天数
	IntervalLength        int     `mapstructure:"interval_length"`          // 扣款间隔长度
	IntervalUnit          string  `mapstructure:"interval_unit"`            // days, months
	PendingWarnHours      int     `mapstructure:"pending_warn_hours"`       // pending 超时告警阈值
}

type CRMConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	APIKey         string   `mapstructure:"api_key"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Tags           []string `mapstructure:"tags"` // 同步联系人时附加的标签
}

type QueueConfig struct {
	CRMSyncQueue string `mapstructure:"crm_sync_queue"`
	MaxWorkers   int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("gateway.mode", "test")
	viper.SetDefault("plan.max_installments", 12)
	viper.SetDefault("plan.min_installment_amount", 20.0)
	viper.SetDefault("plan.first_charge_offset_days", 14)
	viper.SetDefault("plan.interval_length", 1)
	viper.SetDefault("plan.interval_unit", "months")
	viper.SetDefault("plan.pending_warn_hours", 24)
	viper.SetDefault("crm.timeout_seconds", 10)
	viper.SetDefault("queue.crm_sync_queue", "crm_sync_jobs")
	viper.SetDefault("queue.max_workers", 2)
}
