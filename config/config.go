package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type ApiConfig struct {
	// Url is the backend base URL, e.g. https://api.fabricshop.example
	Url      string `yaml:"url" json:"url"`
	Timeout  int    `yaml:"timeout" json:"timeout"`   // seconds
	PageSize int    `yaml:"page_size" json:"page_size"`
}

type SessionConfig struct {
	// TokenTTLDays is the default lifetime of the persisted auth token.
	// RememberTTLDays applies when the login was made with "remember me".
	TokenTTLDays    int `yaml:"token_ttl_days" json:"token_ttl_days"`
	RememberTTLDays int `yaml:"remember_ttl_days" json:"remember_ttl_days"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System  SysConfig     `yaml:"system" json:"system"`
	Api     ApiConfig     `yaml:"api" json:"api"`
	Session SessionConfig `yaml:"session" json:"session"`
	Logger  LogConfig     `yaml:"logger" json:"logger"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "fabrica",
		Location: "Europe/Moscow",
		Workdir:  "/var/fabrica",
		Debug:    true,
	},
	Api: ApiConfig{
		Url:      "http://127.0.0.1:1337",
		Timeout:  30,
		PageSize: 9,
	},
	Session: SessionConfig{
		TokenTTLDays:    7,
		RememberTTLDays: 30,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
		Filename:   "/var/fabrica/fabrica.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue == "true" || evalue == "1" || evalue == "on")
	}
}

func setEnvIntValue(name string, f func(v int)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(cast.ToInt(evalue))
	}
}

// LoadConfig loads the configuration file and applies environment overrides.
// A missing file is not an error; defaults are used. The returned config is a
// copy, overrides never touch DefaultAppConfig itself.
func LoadConfig(cfile string) *AppConfig {
	cfg := *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			fcfg := new(AppConfig)
			if err := yaml.Unmarshal(data, fcfg); err == nil {
				cfg = *fcfg
			}
		}
	}

	setEnvValue("FABRICA_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("FABRICA_LOCATION", func(v string) { cfg.System.Location = v })
	setEnvBoolValue("FABRICA_DEBUG", func(v bool) { cfg.System.Debug = v })

	// FABRICA_API_URL is the single environment switch selecting the backend.
	setEnvValue("FABRICA_API_URL", func(v string) { cfg.Api.Url = v })
	setEnvIntValue("FABRICA_API_TIMEOUT", func(v int) { cfg.Api.Timeout = v })

	setEnvIntValue("FABRICA_TOKEN_TTL_DAYS", func(v int) { cfg.Session.TokenTTLDays = v })
	setEnvIntValue("FABRICA_REMEMBER_TTL_DAYS", func(v int) { cfg.Session.RememberTTLDays = v })

	setEnvValue("FABRICA_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })

	if cfg.Api.Timeout <= 0 {
		cfg.Api.Timeout = 30
	}
	if cfg.Api.PageSize <= 0 {
		cfg.Api.PageSize = 9
	}
	if cfg.Session.TokenTTLDays <= 0 {
		cfg.Session.TokenTTLDays = 7
	}
	if cfg.Session.RememberTTLDays <= 0 {
		cfg.Session.RememberTTLDays = 30
	}
	return &cfg
}

// SessionDBPath returns the bbolt file holding persisted session state.
func (c *AppConfig) SessionDBPath() string {
	return filepath.Join(c.System.Workdir, "session.db")
}
