package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string              `mapstructure:"port"`
	UploadDir           string              `mapstructure:"upload_dir"`
	MaxFileSizeMB       int                 `mapstructure:"max_file_size_mb"`
	SupportedFileTypes  []string            `mapstructure:"supported_file_types"`
	ChunkSize           int                 `mapstructure:"chunk_size"`
	ChunkOverlap        int                 `mapstructure:"chunk_overlap"`
	MinChunkLength      int                 `mapstructure:"min_chunk_length"`
	WorkerCount         int                 `mapstructure:"worker_count"`
	MaxQueueSize        int                 `mapstructure:"max_queue_size"`
	JobTTLMinutes       int                 `mapstructure:"job_ttl_minutes"`
	OCR                 OCRConfig           `mapstructure:"ocr"`
	Embedding           EmbeddingConfig     `mapstructure:"embedding"`
	OpenAIAPIKey        string              `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey        string              `mapstructure:"GEMINI_API_KEY"`
	WeaviateStoreConfig WeaviateStoreConfig `mapstructure:"weaviate_store_config"`
}

type OCRConfig struct {
	// Language is the default OCR language hint: "vi", "en", "code"
	// or "auto".
	Language string `mapstructure:"language"`
	// Enhance enables the image-enhancement retry pass when the first
	// OCR attempt looks poor.
	Enhance bool `mapstructure:"enhance"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // "openai" or "gemini"
	Model    string `mapstructure:"model"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	Scheme string `mapstructure:"scheme"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"` // Changed to match env var
	Class  string `mapstructure:"class"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set up Viper to read from config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("max_file_size_mb", 100)
	v.SetDefault("supported_file_types", []string{".pdf", ".png", ".jpg", ".jpeg", ".txt", ".md", ".py", ".json"})
	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 150)
	v.SetDefault("min_chunk_length", 20)
	v.SetDefault("worker_count", 4)
	v.SetDefault("max_queue_size", 100)
	v.SetDefault("job_ttl_minutes", 60)
	v.SetDefault("ocr.language", "auto")
	v.SetDefault("ocr.enhance", true)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("weaviate_store_config.scheme", "http")
	v.SetDefault("weaviate_store_config.class", "DocumentChunk")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
