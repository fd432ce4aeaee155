package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Security  SecurityConfig  `mapstructure:"security"`
	Battle    BattleConfig    `mapstructure:"battle"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	Script    ScriptConfig    `mapstructure:"script"`
	Report    ReportConfig    `mapstructure:"report"`
	Resource  ResourceConfig  `mapstructure:"resource"`
	Sim       SimConfig       `mapstructure:"sim"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty = stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// SimAllow restricts POST /api/simulations to these IPs or CIDRs.
	// Empty allows everyone.
	SimAllow []string `mapstructure:"sim_allow"`
}

// BattleConfig tunes the combat orchestrator and the arena around it.
type BattleConfig struct {
	MaxIterations        int           `mapstructure:"max_iterations"`
	MaxStalls            int           `mapstructure:"max_stalls"`
	Epsilon              float64       `mapstructure:"epsilon"`
	FallbackAdvance      float64       `mapstructure:"fallback_advance"`
	EnvironmentSpeed     float64       `mapstructure:"environment_speed"`
	EnvironmentActChance float64       `mapstructure:"environment_act_chance"`
	PlayerSpeed          float64       `mapstructure:"player_speed"` // 0 = derive from agility
	SummaryDamage        bool          `mapstructure:"summary_damage"`
	RecentLimit          int           `mapstructure:"recent_limit"`
	LinesTTL             time.Duration `mapstructure:"lines_ttl"`
}

type NarrativeConfig struct {
	Balance float64 `mapstructure:"balance"`
	Enabled bool    `mapstructure:"enabled"`
}

type ScriptConfig struct {
	VMPoolSize int           `mapstructure:"vm_pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ReportConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type ResourceConfig struct {
	CatalogPath string `mapstructure:"catalog_path"` // empty = built-in catalog
}

type SimConfig struct {
	MaxBattles     int `mapstructure:"max_battles"`
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/arena.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_secret", "change-me")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("security.sim_allow", []string{})
	v.SetDefault("battle.max_iterations", 1000)
	v.SetDefault("battle.max_stalls", 100)
	v.SetDefault("battle.epsilon", 0.01)
	v.SetDefault("battle.fallback_advance", 1.0)
	v.SetDefault("battle.environment_speed", 15.0)
	v.SetDefault("battle.environment_act_chance", 0.3)
	v.SetDefault("battle.player_speed", 0)
	v.SetDefault("battle.summary_damage", true)
	v.SetDefault("battle.recent_limit", 100)
	v.SetDefault("battle.lines_ttl", "1h")
	v.SetDefault("narrative.balance", 0.5)
	v.SetDefault("narrative.enabled", true)
	v.SetDefault("script.vm_pool_size", 8)
	v.SetDefault("script.timeout", "200ms")
	v.SetDefault("report.batch_size", 100)
	v.SetDefault("report.flush_interval", "2s")
	v.SetDefault("resource.catalog_path", "")
	v.SetDefault("sim.max_battles", 1000)
	v.SetDefault("sim.max_concurrency", 8)
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults. Environment variables prefixed DF_ override both, with "." in a
// key written as "_" (DF_BATTLE_MAX_ITERATIONS).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("DF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
