package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Web       WebConfig       `yaml:"web"`
	RMF       RMFConfig       `yaml:"rmf"`
	Files     FilesConfig     `yaml:"files"`
	Processes ProcessesConfig `yaml:"processes"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Messaging MessagingConfig `yaml:"messaging"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	ClientURL     string `yaml:"client_url"`
	SessionSecret string `yaml:"session_secret"`
	RequireAuth   bool   `yaml:"require_auth"`
}

// RMFConfig describes the upstream Open-RMF API server.
type RMFConfig struct {
	URL            string        `yaml:"url"`
	APIServer      string        `yaml:"api_server"`
	Timeout        time.Duration `yaml:"timeout"`
	Reconnect      bool          `yaml:"reconnect"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// RESTBaseURL is the base used for REST proxy calls. API_SERVER overrides RMF_URL when set.
func (c RMFConfig) RESTBaseURL() string {
	if c.APIServer != "" {
		return c.APIServer
	}
	return c.URL
}

type FilesConfig struct {
	ConfigDir        string `yaml:"config_dir"`
	BuildingDir      string `yaml:"building_dir"`
	BuildingFilename string `yaml:"building_filename"`
	ImageDir         string `yaml:"image_dir"`
	WatchConfigDir   bool   `yaml:"watch_config_dir"`
}

type ProcessesConfig struct {
	WorkDir       string `yaml:"work_dir"`
	SourceDir     string `yaml:"source_dir"` // colcon workspace; builds run here when set
	ROSCommand    string `yaml:"ros_command"`
	ROSCommand2   string `yaml:"ros_command_secondary"`
	BuildCommand  string `yaml:"build_command"`
	EditorCommand string `yaml:"editor_command"`
	MapPackage    string `yaml:"map_package"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type MessagingConfig struct {
	Backend string      `yaml:"backend"` // "", "mqtt", "kafka" or "nats"
	MQTT    MQTTConfig  `yaml:"mqtt"`
	Kafka   KafkaConfig `yaml:"kafka"`
	NATS    NATSConfig  `yaml:"nats"`
	Topic   string      `yaml:"topic"`
	Source  string      `yaml:"source"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

func Defaults() *Config {
	return &Config{
		Web: WebConfig{
			Host:          "0.0.0.0",
			SessionSecret: "change-me-in-production",
		},
		RMF: RMFConfig{
			URL:            "http://localhost:8000",
			Timeout:        10 * time.Second,
			HealthInterval: 30 * time.Second,
		},
		Files: FilesConfig{
			ConfigDir:        "config",
			BuildingDir:      "maps",
			BuildingFilename: "building.building.yaml",
			ImageDir:         "maps",
			WatchConfigDir:   true,
		},
		Processes: ProcessesConfig{
			WorkDir:       ".",
			BuildCommand:  "colcon build --packages-select",
			EditorCommand: "traffic-editor",
			MapPackage:    "rmf_maps",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "rmfconsole.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "rmfconsole",
				User:     "rmfconsole",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			TTL:     10 * time.Minute,
		},
		Messaging: MessagingConfig{
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "rmfconsole",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
			},
			NATS: NATSConfig{
				URL: "nats://localhost:4222",
			},
			Topic:  "rmfconsole.ops",
			Source: "rmfconsole",
		},
	}
}

// Load reads a YAML config file, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Web.Port <= 0 {
		return fmt.Errorf("the PORT environment variable is not defined")
	}
	if c.RMF.URL == "" {
		return fmt.Errorf("RMF_URL is not defined")
	}
	return nil
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
