package main

import (
	"fmt"
	"strings"
	"time"

	"taskhub_miniapp/internal/repository"
	"taskhub_miniapp/internal/session"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Redis    session.Config    `yaml:"redis"`
	Server   ServerConfig      `yaml:"server"`

	Telegram TelegramConfig `yaml:"telegram"`

	Tasks TasksConfig `yaml:"tasks"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramConfig struct {
	BotToken  string `yaml:"botToken"`
	DebugMode bool   `yaml:"debugMode"`
}

type TasksConfig struct {
	AbandonAfterHours int `yaml:"abandonAfterHours"`
}

func (t TasksConfig) AbandonAfter() time.Duration {
	return time.Duration(t.AbandonAfterHours) * time.Hour
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
