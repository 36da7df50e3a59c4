package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Postgres   PostgresConfig
	Milvus     MilvusConfig
	Redis      RedisConfig
	Embedding  EmbeddingConfig
	Piste      PisteConfig
	LegiFrance LegiFranceConfig
	Judilibre  JudilibreConfig
	Import     ImportConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type PostgresConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	AdminUser     string
	AdminPassword string
	AdminDatabase string
}

type MilvusConfig struct {
	Endpoint string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type EmbeddingConfig struct {
	Provider    string
	HFURL       string
	HFToken     string
	HFModel     string
	OllamaURL   string
	OllamaModel string
	OpenAIKey   string
	OpenAIModel string
}

type PisteConfig struct {
	OAuthURL              string
	ClientID              string
	ClientSecret          string
	JudilibreClientID     string
	JudilibreClientSecret string
}

type LegiFranceConfig struct {
	BaseURL string
}

type JudilibreConfig struct {
	BaseURL string
}

type ImportConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	RetryAttempts      int
	RetryDelayMs       int
	DecisionBlockSize  int
	DecisionBlockCount int
	DecisionErrorLimit int
	TrainingLineLimit  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/eun")

	viper.SetEnvPrefix("EUN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "eun")
	viper.SetDefault("postgres.database", "eun_legal")
	viper.SetDefault("postgres.adminUser", "postgres")
	viper.SetDefault("postgres.adminDatabase", "postgres")

	viper.SetDefault("milvus.endpoint", "localhost:19530")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("embedding.provider", "ollama")
	viper.SetDefault("embedding.hfURL", "https://api-inference.huggingface.co/models")
	viper.SetDefault("embedding.hfModel", "intfloat/multilingual-e5-large")
	viper.SetDefault("embedding.ollamaURL", "http://localhost:11434")
	viper.SetDefault("embedding.ollamaModel", "bge-m3")
	viper.SetDefault("embedding.openAIModel", "text-embedding-3-small")

	viper.SetDefault("piste.oAuthURL", "https://oauth.piste.gouv.fr/api/oauth/token")

	viper.SetDefault("legifrance.baseURL", "https://api.piste.gouv.fr/dila/legifrance/lf-engine-app")
	viper.SetDefault("judilibre.baseURL", "https://api.piste.gouv.fr/cassation/judilibre/v1.0")

	viper.SetDefault("import.chunkSize", 500)
	viper.SetDefault("import.chunkOverlap", 10)
	viper.SetDefault("import.retryAttempts", 5)
	viper.SetDefault("import.retryDelayMs", 1000)
	viper.SetDefault("import.decisionBlockSize", 100)
	viper.SetDefault("import.decisionBlockCount", 10)
	viper.SetDefault("import.decisionErrorLimit", 10)
	viper.SetDefault("import.trainingLineLimit", 524288)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
