package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Prompt   PromptConfig   `mapstructure:"prompt"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
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

// OllamaConfig holds the model-serving endpoint settings. BaseURL may be
// overridden per request via the endpoint query parameter.
type OllamaConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	ListTimeout     time.Duration `mapstructure:"list_timeout"`
	// ExtraDenylist appends additional substrings to the built-in model
	// suitability denylist.
	ExtraDenylist []string `mapstructure:"extra_denylist"`
}

// OCRConfig configures the OCR engines. Tesseract runs in-process via the
// gosseract binding; EasyOCR and PaddleOCR are sidecar HTTP services and
// are disabled when their URL is empty.
type OCRConfig struct {
	Languages    []string      `mapstructure:"languages"`
	Tesseract    bool          `mapstructure:"tesseract"`
	EasyOCRURL   string        `mapstructure:"easyocr_url"`
	PaddleOCRURL string        `mapstructure:"paddleocr_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// PromptConfig optionally points at a prompt template file overriding the
// built-in check analysis prompt. The template must contain the
// ${ocr_text} placeholder.
type PromptConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig controls retention of finished sessions in the progress
// store. A zero TTL keeps sessions for the lifetime of the process.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type DatabaseConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
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

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.generate_timeout", 180*time.Second)
	v.SetDefault("ollama.list_timeout", 10*time.Second)
	v.SetDefault("ocr.languages", []string{"tur", "eng"})
	v.SetDefault("ocr.tesseract", true)
	v.SetDefault("ocr.timeout", 120*time.Second)
	v.SetDefault("session.ttl", time.Duration(0))
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/checklens.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "checks")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("ollama.base_url", "OLLAMA_API_BASE_URL")
	v.BindEnv("ocr.easyocr_url", "EASYOCR_URL")
	v.BindEnv("ocr.paddleocr_url", "PADDLEOCR_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("database.dsn", "DATABASE_DSN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
