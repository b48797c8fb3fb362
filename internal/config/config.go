package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Queue       QueueConfig       `mapstructure:"queue"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// DSN returns the driver specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	if c.Path == "" {
		return "./data/app.db"
	}
	return c.Path
}

type ProviderConfig struct {
	DefaultModel string        `mapstructure:"default_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	OpenAI       OpenAIConfig  `mapstructure:"openai"`
	Gemini       GeminiConfig  `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ImageModel string `mapstructure:"image_model"`
}

type GenerationConfig struct {
	Retry          RetryConfig   `mapstructure:"retry"`
	Costs          CostConfig    `mapstructure:"costs"`
	Script         ScriptConfig  `mapstructure:"script"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	ContextWindow  int           `mapstructure:"context_window"`
	ImageInterval  time.Duration `mapstructure:"image_interval"`
	NoticeCapacity int           `mapstructure:"notice_capacity"`
}

type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

type CostConfig struct {
	StructureGroup float64 `mapstructure:"structure_group"`
	Refinement     float64 `mapstructure:"refinement"`
	ScriptSection  float64 `mapstructure:"script_section"`
	SectionRewrite float64 `mapstructure:"section_rewrite"`
	ImagePrompts   float64 `mapstructure:"image_prompts"`
	ImageBatch     float64 `mapstructure:"image_batch"`
	Image          float64 `mapstructure:"image"`
	PromptRefine   float64 `mapstructure:"prompt_refine"`
	Scenes         float64 `mapstructure:"scenes"`
	ImagePrompt    float64 `mapstructure:"image_prompt"`
	NicheAnalysis  float64 `mapstructure:"niche_analysis"`
	TitleAnalysis  float64 `mapstructure:"title_analysis"`
}

type ScriptConfig struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
	MinWords  int `mapstructure:"min_words"`
	MaxWords  int `mapstructure:"max_words"`
}

type PersistenceConfig struct {
	RemoteURL   string        `mapstructure:"remote_url"`
	RemoteToken string        `mapstructure:"remote_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LocalOnly   bool          `mapstructure:"local_only"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // r2, s3, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type QueueConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	Stream          string        `mapstructure:"stream"`
	Subject         string        `mapstructure:"subject"`
	Consumer        string        `mapstructure:"consumer"`
	Concurrency     int           `mapstructure:"concurrency"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SyncInterval    time.Duration `mapstructure:"sync_interval"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment specific values
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("provider.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("provider.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("provider.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("persistence.remote_url", "REMOTE_STORE_URL")
	v.BindEnv("persistence.remote_token", "REMOTE_STORE_TOKEN")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("queue.url", "NATS_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/app.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("provider.default_model", "gpt-4o")
	v.SetDefault("provider.timeout", 60*time.Second)
	v.SetDefault("provider.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("provider.openai.temperature", 0.7)
	v.SetDefault("provider.gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("provider.gemini.image_model", "gemini-2.5-flash-image")

	v.SetDefault("generation.retry.max_retries", 3)
	v.SetDefault("generation.retry.initial_delay", 2*time.Second)
	v.SetDefault("generation.costs.structure_group", 0.001)
	v.SetDefault("generation.costs.refinement", 0.001)
	v.SetDefault("generation.costs.script_section", 0.02)
	v.SetDefault("generation.costs.section_rewrite", 0.02)
	v.SetDefault("generation.costs.image_prompts", 0.001)
	v.SetDefault("generation.costs.image_batch", 0.001)
	v.SetDefault("generation.costs.image", 0.04)
	v.SetDefault("generation.costs.prompt_refine", 0.001)
	v.SetDefault("generation.costs.scenes", 0.01)
	v.SetDefault("generation.costs.image_prompt", 0.001)
	v.SetDefault("generation.costs.niche_analysis", 0.002)
	v.SetDefault("generation.costs.title_analysis", 0.001)
	v.SetDefault("generation.script.min_length", 1500)
	v.SetDefault("generation.script.max_length", 3000)
	v.SetDefault("generation.script.min_words", 300)
	v.SetDefault("generation.script.max_words", 600)
	v.SetDefault("generation.chunk_size", 4)
	v.SetDefault("generation.context_window", 3)
	v.SetDefault("generation.image_interval", 2*time.Second)
	v.SetDefault("generation.notice_capacity", 200)

	v.SetDefault("persistence.timeout", 15*time.Second)
	v.SetDefault("persistence.local_only", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "gigakavun")

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.url", "nats://localhost:4222")
	v.SetDefault("queue.stream", "GENERATION")
	v.SetDefault("queue.subject", "generation.commands")
	v.SetDefault("queue.consumer", "generation-worker")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.shutdown_timeout", 30*time.Second)
	v.SetDefault("queue.sync_interval", 5*time.Second)
}
