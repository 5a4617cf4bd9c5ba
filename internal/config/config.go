package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultOllamaURL = "http://localhost:11434"

type Config struct {
	Server       ServerConfig      `yaml:"server"`
	Storage      StorageConfig     `yaml:"storage"`
	Database     DatabaseConfig    `yaml:"database"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	EmbedLLM     LLMConfig         `yaml:"embed_llm"`
	InferenceLLM LLMConfig         `yaml:"inference_llm"`
	RAG          RAGConfig         `yaml:"rag"`
	Log          LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Address     string `yaml:"address" validate:"required"`
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	BodyLimitMB int    `yaml:"body_limit_mb" validate:"gt=0"`
}

type StorageConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// DatabaseConfig describes the relational store. Either DSN or the
// individual connection fields must be present.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"oneof=pgdriver pq sqlite"`
	DSN          string `yaml:"dsn" validate:"required_if=Driver sqlite"`
	Host         string `yaml:"host" validate:"required_without=DSN"`
	Port         string `yaml:"port" validate:"required_without=DSN"`
	User         string `yaml:"user" validate:"required_without=DSN"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name" validate:"required_without=DSN"`
	SSLMode      string `yaml:"sslmode"`
	Debug        bool   `yaml:"debug"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"gte=0"`
}

type VectorStoreConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=sql chromem"`
	Path       string `yaml:"path" validate:"required_if=Backend chromem"`
	Collection string `yaml:"collection" validate:"required"`
}

type LLMConfig struct {
	Provider          string  `yaml:"provider" validate:"oneof=ollama openai googleai"`
	BaseURL           string  `yaml:"base_url" validate:"omitempty,url"`
	Model             string  `yaml:"model" validate:"required"`
	Key               string  `yaml:"key" validate:"required_unless=Provider ollama"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

type RAGConfig struct {
	ChunkSize int `yaml:"chunk_size" validate:"gt=0"`
	TopK      int `yaml:"top_k" validate:"gt=0"`
}

type LogConfig struct {
	Level   string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads the yaml file at path (a missing file means defaults),
// applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     ":8000",
			BaseURL:     "http://localhost:8000",
			BodyLimitMB: 50,
		},
		Storage: StorageConfig{Dir: "pdf_storage"},
		Database: DatabaseConfig{
			Driver:       "pgdriver",
			Port:         "5432",
			SSLMode:      "disable",
			MaxOpenConns: 1,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "sql",
			Path:       "./chromemdb",
			Collection: "pdf_embeddings",
		},
		EmbedLLM: LLMConfig{
			Provider: "ollama",
			Model:    "all-minilm",
		},
		InferenceLLM: LLMConfig{
			Provider: "googleai",
			Model:    "gemini-1.5-flash",
		},
		RAG: RAGConfig{ChunkSize: 500, TopK: 3},
		Log: LogConfig{Level: "info", Console: true},
	}
}

// Validate checks the struct tags and reports every failing field. The
// database section is only checked when the sql backend is selected.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	var err error
	if cfg.VectorStore.Backend == "chromem" {
		err = v.StructExcept(cfg, "Database")
	} else {
		err = v.Struct(cfg)
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ConnString returns the configured DSN, or a postgres URL built from the
// individual fields when no DSN is set.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Storage.Dir, "PDF_STORAGE_DIR")
	setString(&cfg.Server.BaseURL, "BASE_URL")
	setString(&cfg.Server.Address, "SERVER_ADDRESS")

	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Database.Host, "POSTGRES_HOST")
	setString(&cfg.Database.Port, "POSTGRES_PORT")
	setString(&cfg.Database.User, "POSTGRES_USER")
	setString(&cfg.Database.Password, "POSTGRES_PASSWORD")
	setString(&cfg.Database.Name, "POSTGRES_DB")

	// the Gemini key serves whichever side is configured for googleai
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
			if llm.Provider == "googleai" {
				llm.Key = key
			}
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_CONSOLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Console = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "sql"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
		if llm.Provider == "ollama" && llm.BaseURL == "" {
			llm.BaseURL = DefaultOllamaURL
		}
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
