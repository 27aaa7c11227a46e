package config

import (
	"time"

	"github.com/spf13/viper"
)

// Endpoints holds the base URL of every analysis collaborator. An empty value
// selects the deterministic mock adapter for that collaborator.
type Endpoints struct {
	Extractor   string `mapstructure:"EXTRACTOR_URL"`
	Transcriber string `mapstructure:"TRANSCRIBER_URL"`
	Vision      string `mapstructure:"VISION_URL"`
	Retrieval   string `mapstructure:"RETRIEVAL_URL"`
	Classifier  string `mapstructure:"CLASSIFIER_URL"`
	SLA         string `mapstructure:"SLA_URL"`
}

// Timeouts bound each collaborator call. Store bounds the routing lookup and
// the ticket write, which run detached from the request deadline.
type Timeouts struct {
	AI     time.Duration `mapstructure:"AI_TIMEOUT"`
	Vision time.Duration `mapstructure:"VISION_TIMEOUT"`
	Index  time.Duration `mapstructure:"INDEX_TIMEOUT"`
	Store  time.Duration `mapstructure:"STORE_TIMEOUT"`
}

type Config struct {
	Env              string        `mapstructure:"ENV"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	AdminKey         string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB  int64         `mapstructure:"MAX_UPLOAD_MB"`
	StorageDir       string        `mapstructure:"STORAGE_DIR"`
	StorageBaseURL   string        `mapstructure:"STORAGE_BASE_URL"`
	RetrievalTopK    int           `mapstructure:"RETRIEVAL_TOP_K"`
	AMQPURL          string        `mapstructure:"AMQP_URL"`
	AMQPExchange     string        `mapstructure:"AMQP_EXCHANGE"`
	DispatchBuffer   int           `mapstructure:"DISPATCH_BUFFER"`
	RoutingTablePath string        `mapstructure:"ROUTING_TABLE_PATH"`

	Endpoints `mapstructure:",squash"`
	Timeouts  `mapstructure:",squash"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "120s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 25)
	v.SetDefault("STORAGE_DIR", "./data/uploads")
	v.SetDefault("STORAGE_BASE_URL", "/files")
	v.SetDefault("RETRIEVAL_TOP_K", 3)
	v.SetDefault("AMQP_EXCHANGE", "claims.events")
	v.SetDefault("DISPATCH_BUFFER", 256)
	v.SetDefault("AI_TIMEOUT", "30s")
	v.SetDefault("VISION_TIMEOUT", "60s")
	v.SetDefault("INDEX_TIMEOUT", "10s")
	v.SetDefault("STORE_TIMEOUT", "15s")

	// AutomaticEnv only resolves keys viper already knows about; register the
	// optional ones so Unmarshal sees them.
	for _, key := range []string{
		"DATABASE_URL", "ADMIN_KEY", "AMQP_URL", "ROUTING_TABLE_PATH",
		"EXTRACTOR_URL", "TRANSCRIBER_URL", "VISION_URL", "RETRIEVAL_URL", "CLASSIFIER_URL", "SLA_URL",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
