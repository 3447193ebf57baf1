// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Server    ServerConfig            `mapstructure:"server"`
	RAG       RAGConfig               `mapstructure:"rag"`
	Legacy    LegacyConfig            `mapstructure:"legacy"`
	Synthesis SynthesisConfig         `mapstructure:"synthesis"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Tracing   TracingConfig           `mapstructure:"tracing"`
	Alerts    AlertsConfig            `mapstructure:"alerts"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsProduction reports whether error details must be hidden from callers.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
	Index     string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- RAG Configuration ---

// RAGConfig holds the direct corpus settings. Fields left empty fall back to Legacy.
type RAGConfig struct {
	ProjectID   string `mapstructure:"project_id"`
	Location    string `mapstructure:"location"`
	CorpusID    string `mapstructure:"corpus_id"`
	Backend     string `mapstructure:"backend"` // vertex | elasticsearch | postgres
	TopK        int    `mapstructure:"top_k"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// LegacyConfig mirrors the nested config object older deployments still carry.
type LegacyConfig struct {
	RAG struct {
		EngineProjectID string `mapstructure:"engine_project_id"`
		EngineLocation  string `mapstructure:"engine_location"`
		EngineID        string `mapstructure:"engine_id"`
	} `mapstructure:"rag"`
	Gemini struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"gemini"`
}

// SynthesisConfig drives the provider matrix and generation parameters.
type SynthesisConfig struct {
	Regions                  []string `mapstructure:"regions"`
	Models                   []string `mapstructure:"models"`
	SecondaryModels          []string `mapstructure:"secondary_models"`
	APIKey                   string   `mapstructure:"api_key"`
	VertexBaseURL            string   `mapstructure:"vertex_base_url"`
	GeminiBaseURL            string   `mapstructure:"gemini_base_url"`
	AttemptTimeout           int      `mapstructure:"attempt_timeout"` // milliseconds
	MaxOutputTokens          int      `mapstructure:"max_output_tokens"`
	SecondaryMaxOutputTokens int      `mapstructure:"secondary_max_output_tokens"`
	Temperature              float64  `mapstructure:"temperature"`
	TopP                     float64  `mapstructure:"top_p"`
	MinAnswerLength          int      `mapstructure:"min_answer_length"`
	MaxContextChunks         int      `mapstructure:"max_context_chunks"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // milliseconds
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// AlertsConfig holds the SNS topic notified when every synthesis provider failed.
type AlertsConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
