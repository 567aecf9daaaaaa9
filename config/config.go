package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Type       string        `yaml:"type"`
	Collection string        `yaml:"collection"`
	Dimension  int           `yaml:"dimension"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Qdrant     QdrantConfig  `yaml:"qdrant"`
	Chroma     ChromaConfig  `yaml:"chroma"`
	SQLite     SQLiteConfig  `yaml:"sqlite"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
// URL may carry a scheme; https implies TLS.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type ChromaConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type         string        `yaml:"type"`
	Model        string        `yaml:"model"`
	OllamaHost   string        `yaml:"ollama_host"`
	Command      string        `yaml:"command"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Port             string         `yaml:"port"`
	WatchPath        string         `yaml:"watch_path"`
	UnidocLicenseKey string         `yaml:"unidoc_license_key"`
	Store            StoreConfig    `yaml:"store"`
	Embedder         EmbedderConfig `yaml:"embedder"`
}

// defaultModels holds the embedding model used when none is configured.
// Each produces 768-dimensional vectors (gemini via output truncation).
var defaultModels = map[string]string{
	"ollama":     "nomic-embed-text",
	"ollama-api": "nomic-embed-text",
	"langchain":  "nomic-embed-text",
	"command":    "nomic-embed-text",
	"gemini":     "gemini-embedding-001",
}

var (
	storeTypes    = []string{"qdrant", "chroma", "sqlite"}
	embedderTypes = []string{"ollama", "ollama-api", "langchain", "gemini", "command"}
)

// Default returns the configuration used when nothing else is provided. The
// embedding model is left empty; ApplyDefaults picks one for the embedder
// type once the type is known.
func Default() *AppConfig {
	return &AppConfig{
		Port: "8080",
		Store: StoreConfig{
			Type:       "qdrant",
			Collection: "rag_documents",
			Dimension:  768,
			Retries:    5,
			RetryDelay: 2 * time.Second,
			Qdrant:     QdrantConfig{URL: "localhost:6334"},
			Chroma:     ChromaConfig{URL: "http://localhost:8000"},
			SQLite:     SQLiteConfig{Path: "docsearch.db"},
		},
		Embedder: EmbedderConfig{
			Type:       "ollama",
			OllamaHost: "http://localhost:11434",
			Command:    "ollama",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty and exists), then environment variables. A .env file in
// the working directory is loaded into the environment first.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("CONFIG: %s not found, using defaults", path)
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.WatchPath, "WATCH_PATH")
	setString(&cfg.UnidocLicenseKey, "UNIDOC_LICENSE_KEY")

	setString(&cfg.Store.Type, "VECTOR_STORE")
	setString(&cfg.Store.Collection, "COLLECTION_NAME")
	setString(&cfg.Store.Qdrant.URL, "QDRANT_URL")
	setString(&cfg.Store.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&cfg.Store.Chroma.URL, "CHROMA_URL")
	setString(&cfg.Store.Chroma.Token, "CHROMA_TOKEN")
	setString(&cfg.Store.SQLite.Path, "SQLITE_PATH")
	if err := setInt(&cfg.Store.Dimension, "VECTOR_DIMENSION"); err != nil {
		return err
	}
	if err := setInt(&cfg.Store.Retries, "STORE_RETRIES"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Store.RetryDelay, "STORE_RETRY_DELAY"); err != nil {
		return err
	}

	setString(&cfg.Embedder.Type, "EMBEDDER")
	setString(&cfg.Embedder.Model, "EMBEDDING_MODEL")
	setString(&cfg.Embedder.OllamaHost, "OLLAMA_HOST")
	setString(&cfg.Embedder.Command, "EMBED_COMMAND")
	setString(&cfg.Embedder.GeminiAPIKey, "GEMINI_API_KEY")
	return setDuration(&cfg.Embedder.Timeout, "EMBED_TIMEOUT")
}

// ApplyDefaults fills settings whose default depends on other settings.
func (c *AppConfig) ApplyDefaults() {
	if c.Embedder.Model == "" {
		c.Embedder.Model = defaultModels[c.Embedder.Type]
	}
}

// Validate reports configuration that cannot produce a working service.
func (c *AppConfig) Validate() error {
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", c.Store.Dimension)
	}
	if c.Store.Retries <= 0 {
		return fmt.Errorf("store retries must be positive, got %d", c.Store.Retries)
	}
	if c.Store.Collection == "" {
		return errors.New("collection name must not be empty")
	}
	if !contains(storeTypes, c.Store.Type) {
		return fmt.Errorf("unknown vector store %q (want one of %s)", c.Store.Type, strings.Join(storeTypes, ", "))
	}
	if !contains(embedderTypes, c.Embedder.Type) {
		return fmt.Errorf("unknown embedder %q (want one of %s)", c.Embedder.Type, strings.Join(embedderTypes, ", "))
	}
	if c.Embedder.Type == "gemini" && c.Embedder.GeminiAPIKey == "" {
		return errors.New("gemini embedder requires GEMINI_API_KEY")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
