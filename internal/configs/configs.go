// Package configs contains the system configurations.
package configs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "HOSPITAL"

type configData struct {
	ServerPort      int32  `mapstructure:"port"`
	DatabaseDSN     string `mapstructure:"database_dsn"`
	DatabaseDriver  string `mapstructure:"database_driver"`
	DatabaseTimeout int    `mapstructure:"database_timeout"`
	PrivateKeyFile  string `mapstructure:"private_key_file"`
	LogLevel        string `mapstructure:"log_level"`
}

// Config holds the system configuration.
type Config interface {
	ServerPort() int32
	DatabaseDSN() string
	DatabaseDriver() string
	DatabaseTimeout() time.Duration
	PrivateKeyFile() string
	PrivateKey() rsa.PrivateKey
	LogLevel() string
}

type defaultConfig struct {
	data       *configData
	privateKey *rsa.PrivateKey
}

func (c *defaultConfig) ServerPort() int32 {
	return c.data.ServerPort
}

func (c *defaultConfig) DatabaseDSN() string {
	return c.data.DatabaseDSN
}

func (c *defaultConfig) DatabaseDriver() string {
	return c.data.DatabaseDriver
}

func (c *defaultConfig) DatabaseTimeout() time.Duration {
	return time.Duration(c.data.DatabaseTimeout) * time.Second
}

func (c *defaultConfig) PrivateKeyFile() string {
	return c.data.PrivateKeyFile
}

func (c *defaultConfig) PrivateKey() rsa.PrivateKey {
	return *c.privateKey
}

func (c *defaultConfig) LogLevel() string {
	return c.data.LogLevel
}

// loadPrivateKey reads the PEM encoded RSA key used to sign tokens. Relative paths that do
// not exist from the working directory are resolved against the config file directory.
func (c *defaultConfig) loadPrivateKey(configPath string) error {
	path := c.PrivateKeyFile()
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(configPath), path)
	}
	pemFile, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read private key: %w", err)
	}
	privatePem, _ := pem.Decode(pemFile)
	if privatePem == nil {
		return errors.New("the given private key is not PEM encoded")
	}
	pk, err := x509.ParsePKCS1PrivateKey(privatePem.Bytes)
	if err != nil {
		return fmt.Errorf("the given private key is not valid: %w", err)
	}
	c.privateKey = pk
	return nil
}

func (c *defaultConfig) validate() error {
	if c.data.ServerPort <= 0 || c.data.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.data.ServerPort)
	}
	if c.data.DatabaseTimeout <= 0 {
		return fmt.Errorf("invalid database timeout %d", c.data.DatabaseTimeout)
	}
	return nil
}

// Load loads the given configuration file. Any key can be overridden by an environment
// variable prefixed with HOSPITAL_, e.g. HOSPITAL_DATABASE_DSN.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("database_timeout", 5)
	v.SetDefault("log_level", "info")
	// AutomaticEnv only applies to keys viper knows about.
	v.SetDefault("database_dsn", "")
	v.SetDefault("private_key_file", "")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("an error occurred while loading config file: %w", err)
	}
	data := &configData{}
	if err := v.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("an error occurred while parsing config file: %w", err)
	}
	configuration := &defaultConfig{data: data}
	if err := configuration.validate(); err != nil {
		return nil, err
	}
	if configuration.PrivateKeyFile() != "" {
		if err := configuration.loadPrivateKey(configPath); err != nil {
			return nil, err
		}
	}
	return configuration, nil
}

// MustLoad loads the given configuration file and if any error occurs, will panic.
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return config
}
