package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Calling    CallingConfig    `yaml:"calling" mapstructure:"calling"`
	Dispatch   DispatchConfig   `yaml:"dispatch" mapstructure:"dispatch"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Poll       PollConfig       `yaml:"poll" mapstructure:"poll"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds the classification service settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// CallingConfig holds the outbound voice-call channel settings. Calls are
// placed through Twilio and bridged to an ElevenLabs conversational agent.
type CallingConfig struct {
	TwilioAccountSID string `yaml:"twilio_account_sid" mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string `yaml:"twilio_auth_token" mapstructure:"twilio_auth_token"`
	FromNumber       string `yaml:"from_number" mapstructure:"from_number"`
	AgentID          string `yaml:"agent_id" mapstructure:"agent_id"`
	ElevenLabsKey    string `yaml:"elevenlabs_key" mapstructure:"elevenlabs_key"`
	ElevenLabsBase   string `yaml:"elevenlabs_base_url" mapstructure:"elevenlabs_base_url"`
	InboundEndpoint  string `yaml:"inbound_endpoint" mapstructure:"inbound_endpoint"`
}

// DispatchConfig bounds the supplier fan-out.
type DispatchConfig struct {
	MaxConcurrentCalls int     `yaml:"max_concurrent_calls" mapstructure:"max_concurrent_calls"`
	CallsPerSecond     float64 `yaml:"calls_per_second" mapstructure:"calls_per_second"`
}

// ExtractionConfig tunes transcript classification.
type ExtractionConfig struct {
	// ConfidenceThreshold is the 0-100 quotation confidence above which a
	// call classifies as quotation_received.
	ConfidenceThreshold int    `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	DefaultCurrency     string `yaml:"default_currency" mapstructure:"default_currency"`
}

// PollConfig configures the transcript poll loop.
type PollConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
	LookbackMins int `yaml:"lookback_mins" mapstructure:"lookback_mins"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROCURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("calling.elevenlabs_base_url", "https://api.elevenlabs.io")
	v.SetDefault("calling.inbound_endpoint", "https://api.us.elevenlabs.io/twilio/inbound_call")
	v.SetDefault("dispatch.max_concurrent_calls", 10)
	v.SetDefault("dispatch.calls_per_second", 2.0)
	v.SetDefault("extraction.confidence_threshold", 60)
	v.SetDefault("extraction.default_currency", "USD")
	v.SetDefault("poll.interval_secs", 5)
	v.SetDefault("poll.lookback_mins", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
