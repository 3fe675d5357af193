package configs

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config struct
type Config struct {
	App      `mapstructure:"app"`
	Postgres `mapstructure:"postgres"`
	Provider `mapstructure:"provider"`
	Gemini   `mapstructure:"gemini"`
	OpenAI   `mapstructure:"openai"`
	Network  `mapstructure:"network"`
}

// App struct
type App struct {
	Debug           bool    `mapstructure:"debug"`
	Env             string  `mapstructure:"env"`
	Port            string  `mapstructure:"port"`
	Timezone        string  `mapstructure:"timezone"`
	TimestampLayout string  `mapstructure:"timestamp_layout"`
	SendRate        float64 `mapstructure:"send_rate"`
	SendBurst       int     `mapstructure:"send_burst"`
}

// Postgres struct - optional exchange ledger
type Postgres struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"database"`
	SSLMode  bool   `mapstructure:"sslmode"`
}

// Provider struct - selects the model provider adapter
type Provider struct {
	Kind         string `mapstructure:"kind"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// Gemini struct
type Gemini struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	ValidateOnOpen bool   `mapstructure:"validate_on_open"`
}

// OpenAI struct - any OpenAI-compatible chat completions endpoint
type OpenAI struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Timeout        int    `mapstructure:"timeout"` // seconds
	MaxTurns       int    `mapstructure:"max_turns"`
	RetryAttempts  int    `mapstructure:"retry_attempts"`
	ValidateOnOpen bool   `mapstructure:"validate_on_open"`
	// KeyOptional lets a keyless local server (LM Studio, Ollama) start without a key
	KeyOptional bool `mapstructure:"key_optional"`
}

// Network struct - reachability probe
type Network struct {
	ProbeEnabled bool   `mapstructure:"probe_enabled"`
	ProbeAddress string `mapstructure:"probe_address"`
	ProbeTimeout int    `mapstructure:"probe_timeout"` // milliseconds
	CacheTTL     int    `mapstructure:"cache_ttl"`     // milliseconds
}

const (
	// ProviderKindGemini selects the Gemini adapter
	ProviderKindGemini = "gemini"
	// ProviderKindOpenAI selects the OpenAI-compatible adapter
	ProviderKindOpenAI = "openai"
)

var config Config

// InitViper func
func InitViper(path, env string) {
	getConfig(path, env)
}

// GetViper func
func GetViper() *Config {
	return &config
}

// APIKey returns the key configured for the selected provider
func (c *Config) APIKey() string {
	if strings.EqualFold(c.Provider.Kind, ProviderKindOpenAI) {
		return c.OpenAI.APIKey
	}
	return c.Gemini.APIKey
}

// KeyOptional reports whether the selected provider may run without an API key
func (c *Config) KeyOptional() bool {
	return strings.EqualFold(c.Provider.Kind, ProviderKindOpenAI) && c.OpenAI.KeyOptional
}

func getConfig(path, env string) {
	viper.SetConfigName("config")
	viper.AddConfigPath(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		logrus.Infof("Config file has changed: %s", e.Name)
	})
	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Fatalf("Failed to unmarshal config (env=%s): %v", env, err)
	}
}
