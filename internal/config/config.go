package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/export"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHARTLOOM"

// Global configuration structure.
type Global struct {
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string `mapstructure:"default_model" yaml:"default_model"`

	// Credentials. None has a built-in default.
	HFToken       string `mapstructure:"hf_token" yaml:"hf_token,omitempty"`
	OpenRouterKey string `mapstructure:"openrouter_api_key" yaml:"openrouter_api_key,omitempty"`
	ParseAPIKey   string `mapstructure:"llama_cloud_api_key" yaml:"llama_cloud_api_key,omitempty"`

	// Endpoint overrides.
	HFBaseURL         string `mapstructure:"hf_base_url" yaml:"hf_base_url,omitempty"`
	OpenRouterBaseURL string `mapstructure:"openrouter_base_url" yaml:"openrouter_base_url,omitempty"`
	ParseBaseURL      string `mapstructure:"parse_base_url" yaml:"parse_base_url,omitempty"`

	// Generation parameters
	MaxNewTokens      int     `mapstructure:"max_new_tokens" yaml:"max_new_tokens"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	TopP              float64 `mapstructure:"top_p" yaml:"top_p"`
	RepetitionPenalty float64 `mapstructure:"repetition_penalty" yaml:"repetition_penalty"`
	MaxPromptTokens   int     `mapstructure:"max_prompt_tokens" yaml:"max_prompt_tokens"`
	MaxRows           int     `mapstructure:"max_rows" yaml:"max_rows"`

	ProjectsDir string `mapstructure:"projects_dir" yaml:"projects_dir"`
	// Models catalog auto-sync
	ModelsCatalogURL string `mapstructure:"models_catalog_url" yaml:"models_catalog_url"`
	ModelsAutoSync   bool   `mapstructure:"models_auto_sync" yaml:"models_auto_sync"`
	ModelsMerge      bool   `mapstructure:"models_merge" yaml:"models_merge"`

	// HTTP/Retry configuration. Inference runs once unless retry_max_attempts is raised.
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
	// Document ingestion backoff base; attempts are fixed.
	IngestBaseDelayMs int `mapstructure:"ingest_base_delay_ms" yaml:"ingest_base_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// HTTP API
	ServerAddr  string   `mapstructure:"server_addr" yaml:"server_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	S3 export.S3Config `mapstructure:"s3" yaml:"s3"`
}

// Dir returns ~/.chartloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".chartloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chartloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", ai.ProviderHuggingFace)
	v.SetDefault("default_model", ai.DefaultHFModel)
	v.SetDefault("hf_token", "")
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("llama_cloud_api_key", "")
	v.SetDefault("hf_base_url", "")
	v.SetDefault("openrouter_base_url", "")
	v.SetDefault("parse_base_url", "")
	v.SetDefault("max_new_tokens", ai.DefaultMaxNewTokens)
	v.SetDefault("temperature", ai.DefaultTemperature)
	v.SetDefault("top_p", ai.DefaultTopP)
	v.SetDefault("repetition_penalty", ai.DefaultRepetitionPenalty)
	v.SetDefault("max_prompt_tokens", 24000)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("models_auto_sync", false)
	v.SetDefault("models_merge", true)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ingest_base_delay_ms", 1000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_format", "text")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_path_style", false)
}

// well-known variables read in addition to the prefixed ones
var envAliases = map[string]string{
	"hf_token":             "HF_TOKEN",
	"openrouter_api_key":   "OPENROUTER_API_KEY",
	"llama_cloud_api_key":  "LLAMA_CLOUD_API_KEY",
	"s3.access_key_id":     "AWS_ACCESS_KEY_ID",
	"s3.secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"s3.region":            "AWS_REGION",
}

// Load loads configuration from defaults, the config file, a .env file in the
// working directory and the environment, in increasing precedence.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	setDefaults(v)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ProjectsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.ProjectsDir = filepath.Join(dir, "projects")
	}
	return &c, nil
}

// HTTPTimeout returns the HTTP client timeout.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// InferencePolicy is the retry policy for model calls. A single attempt
// means no retry.
func (c *Global) InferencePolicy() ai.RetryPolicy {
	if c.RetryMaxAttempts <= 1 {
		return ai.NoRetry()
	}
	return ai.TransientPolicy(c.RetryMaxAttempts,
		time.Duration(c.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(c.RetryMaxDelayMs)*time.Millisecond)
}

// IngestBaseDelay is the base of the linear ingestion backoff.
func (c *Global) IngestBaseDelay() time.Duration {
	return time.Duration(c.IngestBaseDelayMs) * time.Millisecond
}

// Params returns the configured generation parameters.
func (c *Global) Params() insight.Params {
	return insight.Params{
		MaxNewTokens:      c.MaxNewTokens,
		Temperature:       c.Temperature,
		TopP:              c.TopP,
		RepetitionPenalty: c.RepetitionPenalty,
	}
}

// Runtime builds the inference runtime for provider; empty selects the default.
func (c *Global) Runtime(provider string) (ai.Runtime, error) {
	if provider == "" {
		provider = c.DefaultProvider
	}
	name := ai.NormalizeProvider(provider)
	policy := c.InferencePolicy()
	rc := ai.RuntimeConfig{
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		Retry:       &policy,
	}
	switch name {
	case ai.ProviderHuggingFace:
		if c.HFToken == "" {
			return nil, errors.New("HF_TOKEN is missing. Set it in your environment, a .env file or with `chartloom config set hf_token`")
		}
		rc.APIKey, rc.BaseURL = c.HFToken, c.HFBaseURL
	case ai.ProviderOpenRouter:
		if c.OpenRouterKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is missing. Set it in your environment or with `chartloom config set openrouter_api_key`")
		}
		rc.APIKey, rc.BaseURL = c.OpenRouterKey, c.OpenRouterBaseURL
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	}
	rt, ok := ai.GetRuntime(name, rc)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q (want one of %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, nil
}

// NewLogger returns a slog logger writing text or JSON to w.
func (c *Global) NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
