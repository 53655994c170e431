package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const DefaultContextLimit = 128000

type Config struct {
	Env            string `yaml:"env" env:"ENV" env-default:"prod"`
	TelegramApiKey string `yaml:"telegram_api_key" env:"TELEGRAM_TOKEN" env-required:"true" env-description:"telegram bot token"`
	ContextLimit   int    `yaml:"context_limit" env:"CONTEXT_LIMIT" env-default:"128000" env-description:"token ceiling shown to the user"`
	OpenAI         struct {
		ApiKey     string        `yaml:"api_key" env:"OPENAI_API_KEY" env-required:"true" env-description:"OpenAI or Azure OpenAI key"`
		BaseURL    string        `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com"`
		ApiVersion string        `yaml:"api_version" env:"OPENAI_API_VERSION" env-default:"" env-description:"set to use Azure OpenAI"`
		Deployment string        `yaml:"deployment" env:"OPENAI_DEPLOYMENT" env-default:""`
		Model      string        `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4"`
		Timeout    time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"0s"`
	} `yaml:"openai"`
	Fetch struct {
		StripHTML bool `yaml:"strip_html" env:"FETCH_STRIP_HTML" env-default:"false"`
	} `yaml:"fetch"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
		Bind    string `yaml:"bind" env:"METRICS_BIND" env-default:"127.0.0.1:9100"`
	} `yaml:"metrics"`
}

// IsAzure reports whether completions go through an Azure OpenAI deployment.
func (c *Config) IsAzure() bool {
	return c.OpenAI.ApiVersion != ""
}

// Load reads the config file at path when it exists, falling back to the
// process environment otherwise. Environment variables override file values.
func Load(path string) (*Config, error) {
	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else if errors.Is(statErr, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(conf)
	} else {
		err = statErr
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if conf.IsAzure() && conf.OpenAI.Deployment == "" {
		return nil, fmt.Errorf("config: openai.deployment is required with api_version %s", conf.OpenAI.ApiVersion)
	}
	if conf.ContextLimit <= 0 {
		conf.ContextLimit = DefaultContextLimit
	}
	return conf, nil
}

// MustLoad is Load for startup: a missing credential halts the process.
func MustLoad(path string) *Config {
	conf, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return conf
}
