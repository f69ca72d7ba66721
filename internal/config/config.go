package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address     string `yaml:"address"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		NotifyQueue string `yaml:"notify_queue"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Facility struct {
		OpenTime    string `yaml:"open_time"`
		CloseTime   string `yaml:"close_time"`
		SlotMinutes int    `yaml:"slot_minutes"`
	} `yaml:"facility"`

	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig controls the periodic database snapshot job.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/courtside.db"
	}
	if cfg.Facility.OpenTime == "" {
		cfg.Facility.OpenTime = "09:00"
	}
	if cfg.Facility.CloseTime == "" {
		cfg.Facility.CloseTime = "21:00"
	}
	if cfg.Facility.SlotMinutes == 0 {
		cfg.Facility.SlotMinutes = 60
	}
	if cfg.Backup.StoragePath == "" {
		cfg.Backup.StoragePath = "data/backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	return &cfg, nil
}
