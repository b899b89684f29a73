package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/linechat-server/internal/core"
)

// Config holds server configuration values.
type Config struct {
	Host            string        `mapstructure:"host" yaml:"host" validate:"required"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	AdminAddr       string        `mapstructure:"admin_addr" yaml:"admin_addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	MaxNameLength   int           `mapstructure:"max_name_length" yaml:"max_name_length" validate:"gte=1,lte=64"`
	DefaultRoom     string        `mapstructure:"default_room" yaml:"default_room" validate:"required,roomname"`
	MaxLineBytes    int           `mapstructure:"max_line_bytes" yaml:"max_line_bytes" validate:"gte=64"`
	SendQueue       int           `mapstructure:"send_queue" yaml:"send_queue" validate:"gte=1"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8888,
		LogLevel:        "info",
		MaxNameLength:   16,
		DefaultRoom:     "LOBBY",
		MaxLineBytes:    4096,
		SendQueue:       64,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Addr returns the chat listener address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.AdminAddr != "" {
		c.AdminAddr = other.AdminAddr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxNameLength != 0 {
		c.MaxNameLength = other.MaxNameLength
	}
	if other.DefaultRoom != "" {
		c.DefaultRoom = other.DefaultRoom
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.SendQueue != 0 {
		c.SendQueue = other.SendQueue
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("roomname", func(fl validator.FieldLevel) bool {
		return core.IsAlnum(core.NormalizeRoomName(fl.Field().String()))
	})
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.AdminAddr != "" {
		if _, _, err := net.SplitHostPort(c.AdminAddr); err != nil {
			return fmt.Errorf("invalid config: admin_addr: %w", err)
		}
	}
	return nil
}
