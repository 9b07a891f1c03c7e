package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	World      WorldConfig      `yaml:"world"`
	RCON       RCONConfig       `yaml:"rcon"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	OTel       OTelConfig       `yaml:"otel"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Discord    DiscordConfig    `yaml:"discord"`
	Storage    StorageConfig    `yaml:"storage"`
	Messages   MessagesConfig   `yaml:"messages"`
	Extensions []string         `yaml:"extensions"`
}

type WorldConfig struct {
	Path         string        `yaml:"path"`
	LogFile      string        `yaml:"log_file"` // defaults to <path>/logs.txt
	PollInterval time.Duration `yaml:"poll_interval"`
}

type RCONConfig struct {
	Enabled   bool   `yaml:"-"` // set when a password is present
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	Password  string `yaml:"-"` // from env only
	SayFormat string `yaml:"say_format"`
}

// KubernetesConfig switches the log source to a pod's output.
type KubernetesConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	PodLabel  string `yaml:"pod_label"`
}

type OTelConfig struct {
	ServiceName string      `yaml:"service_name"`
	Events      interface{} `yaml:"events"` // "all" or []string
}

type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type DiscordConfig struct {
	Enabled   bool     `yaml:"enabled"`
	BotToken  string   `yaml:"-"` // from env only
	ChannelID string   `yaml:"-"` // from env only
	Events    []string `yaml:"events"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type MessagesConfig struct {
	Join                 []MessageRule `yaml:"join"`
	Leave                []MessageRule `yaml:"leave"`
	Trigger              []TriggerRule `yaml:"trigger"`
	Announcements        []string      `yaml:"announcements"`
	AnnouncementInterval time.Duration `yaml:"announcement_interval"`
	MaxResponses         int           `yaml:"max_responses"`
	RegexTriggers        bool          `yaml:"regex_triggers"`
}

// MessageRule is a message sent to a player whose join count and group match.
type MessageRule struct {
	Message   string `yaml:"message"`
	JoinsLow  int    `yaml:"joins_low"`
	JoinsHigh int    `yaml:"joins_high"` // 0 means no upper bound
	Group     string `yaml:"group"`      // all, staff, admin, mod, nobody
	NotGroup  string `yaml:"not_group"`
}

type TriggerRule struct {
	MessageRule `yaml:",inline"`
	Trigger     string `yaml:"trigger"`
}

// envOverrides holds secrets and runtime values that only come from the environment.
type envOverrides struct {
	ConfigPath       string `env:"CONFIG_PATH" envDefault:"/etc/messagebot/config.yaml"`
	WorldPath        string `env:"WORLD_PATH"`
	RCONHost         string `env:"RCON_HOST"`
	RCONPort         string `env:"RCON_PORT"`
	RCONPassword     string `env:"RCON_PASSWORD"`
	DiscordBotToken  string `env:"DISCORD_BOT_TOKEN"`
	DiscordChannelID string `env:"DISCORD_CHANNEL_ID"`
}

func defaultConfig() Config {
	return Config{
		World: WorldConfig{
			PollInterval: 5 * time.Second,
		},
		RCON: RCONConfig{
			Host:      "localhost",
			Port:      "27015",
			SayFormat: "say %s",
		},
		Kubernetes: KubernetesConfig{
			Namespace: "blockheads",
			PodLabel:  "app=blockheads-server",
		},
		OTel: OTelConfig{
			ServiceName: "messagebot",
			Events:      "all",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Interval: 15 * time.Second,
		},
		Discord: DiscordConfig{
			Enabled: true,
			Events:  []string{"join", "leave", "message"},
		},
		Storage: StorageConfig{
			Path: "/var/lib/messagebot/storage.db",
		},
		Messages: MessagesConfig{
			AnnouncementInterval: 5 * time.Minute,
			MaxResponses:         3,
		},
		Extensions: []string{"messages"},
	}
}

func loadConfig() (Config, error) {
	cfg := defaultConfig()

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	data, err := os.ReadFile(ov.ConfigPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", ov.ConfigPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("read config %s: %w", ov.ConfigPath, err)
	}
	// a missing config file leaves the defaults in place

	if ov.WorldPath != "" {
		cfg.World.Path = ov.WorldPath
	}
	if ov.RCONHost != "" {
		cfg.RCON.Host = ov.RCONHost
	}
	if ov.RCONPort != "" {
		cfg.RCON.Port = ov.RCONPort
	}
	cfg.RCON.Password = ov.RCONPassword
	cfg.RCON.Enabled = cfg.RCON.Password != ""
	cfg.Discord.BotToken = ov.DiscordBotToken
	cfg.Discord.ChannelID = ov.DiscordChannelID

	if cfg.World.Path == "" {
		return cfg, fmt.Errorf("world.path or WORLD_PATH is required")
	}
	if cfg.World.LogFile == "" {
		cfg.World.LogFile = filepath.Join(cfg.World.Path, "logs.txt")
	}

	if cfg.Discord.BotToken != "" && cfg.Discord.ChannelID == "" {
		return cfg, fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	if cfg.Discord.BotToken == "" {
		cfg.Discord.Enabled = false
	}

	return cfg, nil
}

// otelEventAllowed returns whether a given event type should be exported as a log record.
func (c *Config) otelEventAllowed(eventType string) bool {
	if s, ok := c.OTel.Events.(string); ok && s == "all" {
		return true
	}
	if list, ok := c.OTel.Events.([]interface{}); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && (s == "all" || s == eventType) {
				return true
			}
		}
	}
	return false
}

// discordEventAllowed returns whether a given event type should be sent to Discord.
func (c *Config) discordEventAllowed(eventType string) bool {
	if !c.Discord.Enabled {
		return false
	}
	for _, e := range c.Discord.Events {
		if e == "all" || e == eventType {
			return true
		}
	}
	return false
}
