package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the dataset builder.
type Config struct {
	App      AppConfig
	Pipeline PipelineConfig
	Logger   LoggerConfig
}

// AppConfig identifies the tool run.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// PipelineConfig holds input and output locations for one build.
type PipelineConfig struct {
	TaxonomyPath string
	InputGlob    string
	OutJSONL     string
	OutCSV       string
	OutRejected  string
	ApplyFixes   bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// fileConfig is the optional on-disk YAML overlay.
type fileConfig struct {
	Taxonomy    string `yaml:"taxonomy"`
	InputGlob   string `yaml:"input_glob"`
	OutJSONL    string `yaml:"out_jsonl"`
	OutCSV      string `yaml:"out_csv"`
	OutRejected string `yaml:"out_rejected"`
	ApplyFixes  *bool  `yaml:"apply_fixes"`
	Log         struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
}

// Load reads configuration with precedence defaults < YAML file < environment.
// The YAML path may be empty, in which case only defaults and env apply.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "arabic-itsm-dataset"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Pipeline: PipelineConfig{
			TaxonomyPath: "taxonomy_itsm_v1.json",
			InputGlob:    "parts/part_*.jsonl",
			OutJSONL:     "dataset_clean.jsonl",
			OutCSV:       "dataset_clean.csv",
			OutRejected:  "dataset_rejected.jsonl",
		},
		Logger: LoggerConfig{
			Level:    "info",
			Encoding: "console",
		},
	}

	if configFile != "" {
		if err := applyFile(cfg, configFile); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIfPresent(&cfg.Pipeline.TaxonomyPath, fc.Taxonomy)
	setIfPresent(&cfg.Pipeline.InputGlob, fc.InputGlob)
	setIfPresent(&cfg.Pipeline.OutJSONL, fc.OutJSONL)
	setIfPresent(&cfg.Pipeline.OutCSV, fc.OutCSV)
	setIfPresent(&cfg.Pipeline.OutRejected, fc.OutRejected)
	if fc.ApplyFixes != nil {
		cfg.Pipeline.ApplyFixes = *fc.ApplyFixes
	}
	setIfPresent(&cfg.Logger.Level, fc.Log.Level)
	setIfPresent(&cfg.Logger.Encoding, fc.Log.Encoding)

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Pipeline.TaxonomyPath = getEnv("ITSM_TAXONOMY", cfg.Pipeline.TaxonomyPath)
	cfg.Pipeline.InputGlob = getEnv("ITSM_INPUT_GLOB", cfg.Pipeline.InputGlob)
	cfg.Pipeline.OutJSONL = getEnv("ITSM_OUT_JSONL", cfg.Pipeline.OutJSONL)
	cfg.Pipeline.OutCSV = getEnv("ITSM_OUT_CSV", cfg.Pipeline.OutCSV)
	cfg.Pipeline.OutRejected = getEnv("ITSM_OUT_REJECTED", cfg.Pipeline.OutRejected)
	cfg.Pipeline.ApplyFixes = getEnvAsBool("ITSM_APPLY_FIXES", cfg.Pipeline.ApplyFixes)
	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getEnv("LOG_ENCODING", cfg.Logger.Encoding)
}

func setIfPresent(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
