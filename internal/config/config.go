package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config 描述助手进程在启动阶段需要加载的核心配置。
type Config struct {
	Server   ServerConfig   `json:"server"`
	Logger   LoggerConfig   `json:"logger"`
	Auth     AuthConfig     `json:"auth"`
	Catalog  CatalogConfig  `json:"catalog"`
	Records  RecordsConfig  `json:"records"`
	Session  SessionConfig  `json:"session"`
	Audit    AuditConfig    `json:"audit"`
	Intent   IntentConfig   `json:"intent"`
	Alerting AlertingConfig `json:"alerting"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// LoggerConfig 控制运行日志与审计日志流。
type LoggerConfig struct {
	Level       string   `json:"level"`
	Format      string   `json:"format"`
	OutputPaths []string `json:"output_paths"`
	Audit       struct {
		Enabled    bool   `json:"enabled"`
		Path       string `json:"path"`
		MaxSizeMB  int    `json:"max_size_mb"`
		MaxBackups int    `json:"max_backups"`
		MaxAgeDays int    `json:"max_age_days"`
	} `json:"audit"`
}

// AuthConfig 控制身份认证方式与种子账号。
type AuthConfig struct {
	Mode string `json:"mode"`
	JWT  struct {
		Secret     string `json:"secret"`
		Issuer     string `json:"issuer"`
		AccessTTL  int64  `json:"access_ttl_seconds"`
		RefreshTTL int64  `json:"refresh_ttl_seconds"`
	} `json:"jwt"`
	Seeds []AuthSeed `json:"seeds"`
}

// AuthSeed 描述启动时写入用户库的账号。
type AuthSeed struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	Disabled bool     `json:"disabled"`
}

// CatalogConfig 控制动作目录的来源。
type CatalogConfig struct {
	// Driver 取值 memory、file 或 mysql。memory 使用内置目录。
	Driver string      `json:"driver"`
	Path   string      `json:"path"`
	MySQL  MySQLConfig `json:"mysql"`
}

// RecordsConfig 控制业务记录后端。
type RecordsConfig struct {
	// Driver 取值 memory 或 mysql。memory 会写入演示数据。
	Driver string      `json:"driver"`
	MySQL  MySQLConfig `json:"mysql"`
}

// SessionConfig 控制会话存储。
type SessionConfig struct {
	// Driver 取值 memory 或 redis。
	Driver string      `json:"driver"`
	Redis  RedisConfig `json:"redis"`
	// TTLSeconds 仅对 redis 生效，0 表示会话不过期。
	TTLSeconds int    `json:"ttl_seconds"`
	KeyPrefix  string `json:"key_prefix"`
}

// AuditConfig 控制审计记录的落地与事件外发。
type AuditConfig struct {
	Sink   AuditSinkConfig   `json:"sink"`
	Events AuditEventsConfig `json:"events"`
}

// AuditSinkConfig 控制审计后端。
type AuditSinkConfig struct {
	// Driver 取值 memory、file 或 mysql。
	Driver string      `json:"driver"`
	Path   string      `json:"path"`
	MySQL  MySQLConfig `json:"mysql"`
}

// AuditEventsConfig 控制审计事件的旁路发布。
type AuditEventsConfig struct {
	// Driver 取值 none、redis 或 rabbitmq。
	Driver string      `json:"driver"`
	Redis  RedisConfig `json:"redis"`
	Stream string      `json:"stream"`
	AMQP   struct {
		URL   string `json:"url"`
		Queue string `json:"queue"`
	} `json:"amqp"`
}

// IntentConfig 控制意图解析器。
type IntentConfig struct {
	Provider string `json:"provider"`
	OpenAI   struct {
		APIKey         string `json:"api_key"`
		BaseURL        string `json:"base_url"`
		Model          string `json:"model"`
		TimeoutSeconds int    `json:"timeout_seconds"`
		MaxTokens      int    `json:"max_tokens"`
	} `json:"openai"`
}

// AlertingConfig 控制告警渠道。留空的渠道不启用。
type AlertingConfig struct {
	DingTalkWebhook string `json:"dingtalk_webhook"`
	SlackWebhook    string `json:"slack_webhook"`
	SlackChannel    string `json:"slack_channel"`
}

// MySQLConfig 统一描述 MySQL 连接信息。
type MySQLConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// RedisConfig 统一描述 Redis 连接信息。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Audit.Enabled && c.Logger.Audit.Path != "" && !filepath.IsAbs(c.Logger.Audit.Path) {
		c.Logger.Audit.Path = filepath.Join(baseDir, c.Logger.Audit.Path)
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = "disabled"
	}

	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "memory"
	}
	if c.Catalog.Path != "" && !filepath.IsAbs(c.Catalog.Path) {
		c.Catalog.Path = filepath.Join(baseDir, c.Catalog.Path)
	}

	if c.Records.Driver == "" {
		c.Records.Driver = "memory"
	}

	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.KeyPrefix == "" {
		c.Session.KeyPrefix = "erpassist"
	}

	if c.Audit.Sink.Driver == "" {
		c.Audit.Sink.Driver = "memory"
	}
	if c.Audit.Sink.Path != "" && !filepath.IsAbs(c.Audit.Sink.Path) {
		c.Audit.Sink.Path = filepath.Join(baseDir, c.Audit.Sink.Path)
	}
	if c.Audit.Events.Driver == "" {
		c.Audit.Events.Driver = "none"
	}

	if c.Intent.Provider == "" {
		c.Intent.Provider = "openai"
	}
	if c.Intent.OpenAI.Model == "" {
		c.Intent.OpenAI.Model = "gpt-4o"
	}
	if c.Intent.OpenAI.TimeoutSeconds <= 0 {
		c.Intent.OpenAI.TimeoutSeconds = 60
	}
	if c.Intent.OpenAI.APIKey == "" {
		c.Intent.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
