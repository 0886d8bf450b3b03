package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".operate"
	envPrefix  = "OPERATE"

	KeyModel              = "model"
	KeySupportedModels    = "models.supported"
	KeyOllamaHost         = "ollama.host"
	KeyBrowserThreshold   = "browser.threshold"
	KeyBrowserProfile     = "browser.profile"
	KeyBrowserProfileName = "browser.profile_name"
	KeyBrowserHeadless    = "browser.headless"
	KeyBrowserMaxSteps    = "browser.max_steps"
	KeyBrowserStepTimeout = "browser.step_timeout"
	KeyBrowserChromePath  = "browser.chrome_path"
	KeyLoopMaxIterations  = "loop.max_iterations"
	KeyLoopPace           = "loop.pace"
	KeyOCRLanguages       = "ocr.languages"
	KeyOCRIdleEviction    = "ocr.idle_eviction"
	KeyClassifierLLM      = "classifier.llm.enabled"
	KeyClassifierLLMModel = "classifier.llm.model"
	KeyHistoryPath        = "history.path"
	KeyHistoryLimit       = "history.limit"

	maxLoopIterations = 10
)

var DefaultSupportedModels = []string{"llama3.2-vision", "llava", "qwen2.5vl", "gemma3", "minicpm-v"}

type Config struct {
	Model           string
	SupportedModels []string
	OllamaHost      string
	Browser         Browser
	Loop            Loop
	OCR             OCR
	Classifier      Classifier
	History         History
}

type Browser struct {
	Threshold   float64
	Profile     string
	ProfileName string
	Headless    bool
	MaxSteps    int
	StepTimeout time.Duration
	ChromePath  string
}

type Loop struct {
	MaxIterations int
	Pace          time.Duration
}

type OCR struct {
	Languages    []string
	IdleEviction time.Duration
}

type Classifier struct {
	LLMEnabled bool
	LLMModel   string
}

type History struct {
	Path  string
	Limit int
}

// New returns a viper instance with defaults applied and, when present,
// ~/.operate/config.toml loaded. OPERATE_* environment variables override
// file values, e.g. OPERATE_OLLAMA_HOST for ollama.host.
func New(homeDir string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v, homeDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(homeDir, configDir))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return v, nil
}

func SetDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault(KeyModel, "llama3.2-vision")
	v.SetDefault(KeySupportedModels, DefaultSupportedModels)
	v.SetDefault(KeyOllamaHost, "http://127.0.0.1:11434")
	v.SetDefault(KeyBrowserThreshold, 0.6)
	v.SetDefault(KeyBrowserProfile, "")
	v.SetDefault(KeyBrowserProfileName, "SelfOperatingComputer")
	v.SetDefault(KeyBrowserHeadless, false)
	v.SetDefault(KeyBrowserMaxSteps, 25)
	v.SetDefault(KeyBrowserStepTimeout, 60*time.Second)
	v.SetDefault(KeyBrowserChromePath, "")
	v.SetDefault(KeyLoopMaxIterations, maxLoopIterations)
	v.SetDefault(KeyLoopPace, time.Second)
	v.SetDefault(KeyOCRLanguages, []string{"eng"})
	v.SetDefault(KeyOCRIdleEviction, 5*time.Minute)
	v.SetDefault(KeyClassifierLLM, false)
	v.SetDefault(KeyClassifierLLMModel, "llama3.2")
	v.SetDefault(KeyHistoryPath, filepath.Join(homeDir, configDir, "runs.toml"))
	v.SetDefault(KeyHistoryLimit, 200)
}

// Load reads and validates the typed configuration.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Model:           strings.TrimSpace(v.GetString(KeyModel)),
		SupportedModels: v.GetStringSlice(KeySupportedModels),
		OllamaHost:      strings.TrimSpace(v.GetString(KeyOllamaHost)),
		Browser: Browser{
			Threshold:   v.GetFloat64(KeyBrowserThreshold),
			Profile:     v.GetString(KeyBrowserProfile),
			ProfileName: v.GetString(KeyBrowserProfileName),
			Headless:    v.GetBool(KeyBrowserHeadless),
			MaxSteps:    v.GetInt(KeyBrowserMaxSteps),
			StepTimeout: v.GetDuration(KeyBrowserStepTimeout),
			ChromePath:  v.GetString(KeyBrowserChromePath),
		},
		Loop: Loop{
			MaxIterations: v.GetInt(KeyLoopMaxIterations),
			Pace:          v.GetDuration(KeyLoopPace),
		},
		OCR: OCR{
			Languages:    v.GetStringSlice(KeyOCRLanguages),
			IdleEviction: v.GetDuration(KeyOCRIdleEviction),
		},
		Classifier: Classifier{
			LLMEnabled: v.GetBool(KeyClassifierLLM),
			LLMModel:   v.GetString(KeyClassifierLLMModel),
		},
		History: History{
			Path:  v.GetString(KeyHistoryPath),
			Limit: v.GetInt(KeyHistoryLimit),
		},
	}

	if cfg.Model == "" {
		return Config{}, errors.New("model is empty")
	}
	if cfg.OllamaHost == "" {
		return Config{}, errors.New("ollama host is empty")
	}
	if cfg.Browser.Threshold < 0 || cfg.Browser.Threshold > 1 {
		return Config{}, fmt.Errorf("%s must be within [0,1], got %.2f", KeyBrowserThreshold, cfg.Browser.Threshold)
	}
	if cfg.Loop.MaxIterations <= 0 || cfg.Loop.MaxIterations > maxLoopIterations {
		cfg.Loop.MaxIterations = maxLoopIterations
	}
	if cfg.Loop.Pace < 0 {
		return Config{}, fmt.Errorf("%s must not be negative", KeyLoopPace)
	}
	if cfg.Browser.MaxSteps <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", KeyBrowserMaxSteps)
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"eng"}
	}

	var err error
	if cfg.History.Path, err = expandHome(cfg.History.Path); err != nil {
		return Config{}, err
	}
	if cfg.Browser.Profile, err = expandHome(cfg.Browser.Profile); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
