package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/chartloom/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set chartloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("default_provider: %s\n", cfg.DefaultProvider)
		fmt.Printf("default_model: %s\n", cfg.DefaultModel)
		fmt.Printf("hf_token: %s\n", mask(cfg.HFToken))
		fmt.Printf("openrouter_api_key: %s\n", mask(cfg.OpenRouterKey))
		fmt.Printf("llama_cloud_api_key: %s\n", mask(cfg.ParseAPIKey))
		if cfg.HFBaseURL != "" {
			fmt.Printf("hf_base_url: %s\n", cfg.HFBaseURL)
		}
		if cfg.ParseBaseURL != "" {
			fmt.Printf("parse_base_url: %s\n", cfg.ParseBaseURL)
		}
		fmt.Printf("max_new_tokens: %d\n", cfg.MaxNewTokens)
		fmt.Printf("temperature: %.3f\n", cfg.Temperature)
		fmt.Printf("top_p: %.3f\n", cfg.TopP)
		fmt.Printf("repetition_penalty: %.3f\n", cfg.RepetitionPenalty)
		fmt.Printf("max_prompt_tokens: %d\n", cfg.MaxPromptTokens)
		fmt.Printf("retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Printf("ingest_base_delay_ms: %d\n", cfg.IngestBaseDelayMs)
		fmt.Printf("ollama_host: %s\n", cfg.OllamaHost)
		fmt.Printf("server_addr: %s\n", cfg.ServerAddr)
		fmt.Printf("log_format: %s\n", cfg.LogFormat)
		fmt.Printf("projects_dir: %s\n", cfg.ProjectsDir)
		if cfg.S3.Bucket != "" {
			fmt.Printf("s3.bucket: %s\n", cfg.S3.Bucket)
			fmt.Printf("s3.region: %s\n", cfg.S3.Region)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("✓ Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	parseInt := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "default_provider":
		p := ai.NormalizeProvider(val)
		if !ai.KnownProvider(p) {
			return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.DefaultProvider = p
	case "default_model":
		c.DefaultModel = val
	case "hf_token":
		c.HFToken = val
	case "openrouter_api_key":
		c.OpenRouterKey = val
	case "llama_cloud_api_key":
		c.ParseAPIKey = val
	case "hf_base_url":
		c.HFBaseURL = val
	case "parse_base_url":
		c.ParseBaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "max_new_tokens":
		c.MaxNewTokens, err = parseInt()
	case "max_prompt_tokens":
		c.MaxPromptTokens, err = parseInt()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = parseInt()
	case "ingest_base_delay_ms":
		c.IngestBaseDelayMs, err = parseInt()
	case "temperature":
		c.Temperature, err = parseFloat()
	case "top_p":
		c.TopP, err = parseFloat()
	case "repetition_penalty":
		c.RepetitionPenalty, err = parseFloat()
	case "server_addr":
		c.ServerAddr = val
	case "log_format":
		if val != "text" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
		c.LogFormat = val
	case "projects_dir":
		c.ProjectsDir = val
	case "s3.bucket":
		c.S3.Bucket = val
	case "s3.region":
		c.S3.Region = val
	case "s3.endpoint":
		c.S3.Endpoint = val
	case "s3.prefix":
		c.S3.Prefix = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
