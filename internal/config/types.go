// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the keyfob configuration from file, environment and
// command-line flags.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Database      DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Language      string          `mapstructure:"language" yaml:"language"`
	SecretKeyPath string          `mapstructure:"secret_key_path" yaml:"secret_key_path"`
	Passphrase    string          `mapstructure:"passphrase" yaml:"passphrase,omitempty"`
	Mock          bool            `mapstructure:"mock" yaml:"-"`
	Reader        ReaderConfig    `mapstructure:"reader" yaml:"reader"`
	Indicator     IndicatorConfig `mapstructure:"indicator" yaml:"indicator"`
	MQTT          MQTTConfig      `mapstructure:"mqtt" yaml:"mqtt"`
	Timing        TimingConfig    `mapstructure:"timing" yaml:"timing"`
}

// DatabaseConfig selects the backend. Type is one of sqlite, postgres, mysql.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// ReaderConfig selects the RFID reader. Type is one of mfrc522, keyboard,
// serial, mock.
type ReaderConfig struct {
	Type   string `mapstructure:"type" yaml:"type"`
	Device string `mapstructure:"device" yaml:"device,omitempty"`
	Baud   int    `mapstructure:"baud" yaml:"baud,omitempty"`
	Format string `mapstructure:"format" yaml:"format,omitempty"`
}

// IndicatorConfig holds optional BCM pin numbers for status LEDs.
type IndicatorConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver,omitempty"`
	Chip      string `mapstructure:"chip" yaml:"chip,omitempty"`
	GreenPin  *uint8 `mapstructure:"green_pin" yaml:"green_pin,omitempty"`
	YellowPin *uint8 `mapstructure:"yellow_pin" yaml:"yellow_pin,omitempty"`
	RedPin    *uint8 `mapstructure:"red_pin" yaml:"red_pin,omitempty"`
}

// MQTTConfig enables event publishing when Host is set.
type MQTTConfig struct {
	Host       string `mapstructure:"host" yaml:"host,omitempty"`
	Port       int    `mapstructure:"port" yaml:"port,omitempty"`
	ClientID   string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	CACert     string `mapstructure:"ca_cert" yaml:"ca_cert,omitempty"`
	ClientCert string `mapstructure:"client_cert" yaml:"client_cert,omitempty"`
	ClientKey  string `mapstructure:"client_key" yaml:"client_key,omitempty"`
}

// TimingConfig tunes the tap state machine.
type TimingConfig struct {
	CheckoutWindow time.Duration `mapstructure:"checkout_window" yaml:"checkout_window"`
	HoldWindow     time.Duration `mapstructure:"hold_window" yaml:"hold_window"`
	MinHold        time.Duration `mapstructure:"min_hold" yaml:"min_hold"`
}

// Defaults returns the viper defaults map used by the CLI.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":          "sqlite",
		"database.dsn":           "./data/keyfob.db",
		"language":               "en",
		"secret_key_path":        "./data/secret.key",
		"reader.type":            "mfrc522",
		"reader.baud":            115200,
		"reader.format":          "10h",
		"indicator.driver":       "govattu",
		"indicator.chip":         "gpiochip0",
		"mqtt.port":              1883,
		"mqtt.client_id":         "keyfob",
		"timing.checkout_window": 20 * time.Second,
		"timing.hold_window":     2 * time.Minute,
		"timing.min_hold":        2 * time.Minute,
	}
}
