package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Well       WellConfig       `mapstructure:"well"`
	Ake        AkeConfig        `mapstructure:"ake"`
	Sync       SyncConfig       `mapstructure:"sync"`
	GatePoll   GatePollConfig   `mapstructure:"gate_poll"`
	TimeRules  TimeRulesConfig  `mapstructure:"time_rules"`
	AkeInbound AkeInboundConfig `mapstructure:"ake_inbound"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// WellConfig points at the well access-control vendor API.
type WellConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	AppKey  string        `mapstructure:"app_key"`
	Sign    string        `mapstructure:"sign"`
	Version string        `mapstructure:"version"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AkeConfig points at the ake parking vendor API.
type AkeConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	AppKey          string        `mapstructure:"app_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultOperator string        `mapstructure:"default_operator"`
}

type SyncConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Cron                 string `mapstructure:"cron"`
	LastSyncFile         string `mapstructure:"last_sync_file"`
	HistoryFile          string `mapstructure:"history_file"`
	MaxHistory           int    `mapstructure:"max_history"`
	HistoryRetentionDays int    `mapstructure:"history_retention_days"`
	DefaultDoorIDs       string `mapstructure:"default_door_ids"`
}

type GatePollConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Cron           string        `mapstructure:"cron"`
	CheckpointFile string        `mapstructure:"checkpoint_file"`
	Lookback       time.Duration `mapstructure:"lookback"`
	PageSize       int           `mapstructure:"page_size"`
}

type TimeRulesConfig struct {
	PermanentRuleName string `mapstructure:"permanent_rule_name"`
}

type AkeInboundConfig struct {
	ImageBaseURL string `mapstructure:"image_base_url"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("well.timeout", "15s")
	v.SetDefault("well.version", "1.0")
	v.SetDefault("ake.timeout", "15s")
	v.SetDefault("ake.default_operator", "系统同步")
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.cron", "0 */5 * * * *")
	v.SetDefault("sync.last_sync_file", "data/last-sync-time.txt")
	v.SetDefault("sync.history_file", "data/sync-history.json")
	v.SetDefault("sync.max_history", 100)
	v.SetDefault("sync.history_retention_days", 90)
	v.SetDefault("sync.default_door_ids", "")
	v.SetDefault("gate_poll.enabled", true)
	v.SetDefault("gate_poll.cron", "0 */1 * * * *")
	v.SetDefault("gate_poll.checkpoint_file", "data/gate-poll-checkpoint.txt")
	v.SetDefault("gate_poll.lookback", "5m")
	v.SetDefault("gate_poll.page_size", 10000)
	v.SetDefault("time_rules.permanent_rule_name", "长期通行规则")
	v.SetDefault("ake_inbound.image_base_url", "")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
