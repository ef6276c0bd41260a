package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	Server  ServerConfig
	DB      DatabaseConfig
	Qdrant  QdrantConfig
	Vector  VectorConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Ranking RankingConfig
	Session SessionConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port string `split_words:"true" default:"3000"`
	Env  string `split_words:"true" default:"development"`
}

type DatabaseConfig struct {
	Host     string `split_words:"true" default:"localhost"`
	Port     string `split_words:"true" default:"5432"`
	User     string `split_words:"true" default:"postgres"`
	Password string `split_words:"true" default:"postgres"`
	Name     string `split_words:"true" default:"cv_ranker"`
}

type QdrantConfig struct {
	URL        string `split_words:"true" default:"http://localhost:6334"`
	APIKey     string `split_words:"true"`
	Collection string `split_words:"true" default:"cv_ranker_chunks"`
	VectorSize int    `split_words:"true" default:"768"`
}

// VectorConfig selects the vector store backend: "qdrant" or "memory".
type VectorConfig struct {
	Backend string `split_words:"true" default:"qdrant"`
}

type GeminiConfig struct {
	APIKey     string `split_words:"true"`
	Model      string `split_words:"true" default:"gemini-2.5-flash"`
	EmbedModel string `split_words:"true" default:"text-embedding-004"`
}

type StorageConfig struct {
	UploadPath  string `split_words:"true" default:"./temp_sessions"`
	MaxFileSize int64  `split_words:"true" default:"10485760"`
	MaxFiles    int    `split_words:"true" default:"50"`
}

type RankingConfig struct {
	Workers            int           `split_words:"true" default:"4"`
	DefaultTopN        int           `split_words:"true" default:"3"`
	ChunkTokens        int           `split_words:"true" default:"800"`
	ChunkOverlapTokens int           `split_words:"true" default:"120"`
	CallTimeout        time.Duration `split_words:"true" default:"60s"`
	QueryTopK          int           `split_words:"true" default:"500"`
	ExplainTimeout     time.Duration `split_words:"true" default:"15s"`
}

type SessionConfig struct {
	TTL             time.Duration `split_words:"true" default:"24h"`
	CleanupInterval time.Duration `split_words:"true" default:"10m"`
}

type LogConfig struct {
	JSON  bool `split_words:"true" default:"false"`
	Debug bool `split_words:"true" default:"false"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	if c.Vector.Backend != "qdrant" && c.Vector.Backend != "memory" {
		return fmt.Errorf("invalid VECTOR_BACKEND %q: want qdrant or memory", c.Vector.Backend)
	}
	if c.Vector.Backend == "qdrant" && c.Qdrant.URL == "" {
		return fmt.Errorf("%w: QDRANT_URL", ErrMissingRequired)
	}
	if c.Qdrant.VectorSize <= 0 {
		return fmt.Errorf("QDRANT_VECTOR_SIZE must be positive, got %d", c.Qdrant.VectorSize)
	}
	if c.Ranking.Workers <= 0 {
		return fmt.Errorf("RANKING_WORKERS must be positive, got %d", c.Ranking.Workers)
	}
	if c.Ranking.DefaultTopN <= 0 {
		return fmt.Errorf("RANKING_DEFAULT_TOP_N must be positive, got %d", c.Ranking.DefaultTopN)
	}
	if c.Ranking.ChunkTokens <= 0 || c.Ranking.ChunkOverlapTokens < 0 || c.Ranking.ChunkOverlapTokens >= c.Ranking.ChunkTokens {
		return fmt.Errorf("invalid chunk sizes: tokens=%d overlap=%d", c.Ranking.ChunkTokens, c.Ranking.ChunkOverlapTokens)
	}
	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
	)
}
