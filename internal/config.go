package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Listen          string   `mapstructure:"listen"`
	ExternalURL     string   `mapstructure:"externalUrl"`
	APIKey          string   `mapstructure:"apiKey"`
	TokenSecret     string   `mapstructure:"tokenSecret"`
	TokenTTLMinutes int      `mapstructure:"tokenTtlMinutes"`
	AllowedOrigins  []string `mapstructure:"allowedOrigins"`
	RegistryDriver  string   `mapstructure:"registryDriver"`
	RegistryDSN     string   `mapstructure:"registryDsn"`
	MigrationsPath  string   `mapstructure:"migrationsPath"`
	MaxFileSize     string   `mapstructure:"maxFileSize"`
	MaxRequestBody  string   `mapstructure:"maxRequestBody"`
}

type UpstreamConfig struct {
	BaseURL        string `mapstructure:"baseUrl"`
	AccessToken    string `mapstructure:"accessToken"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	RetryMax       int    `mapstructure:"retryMax"`
}

type ClientConfig struct {
	Endpoint    string   `mapstructure:"endpoint"`
	APIKey      string   `mapstructure:"apiKey"`
	ChunkSize   string   `mapstructure:"chunkSize"`
	RetryDelays []string `mapstructure:"retryDelays"`
	Resume      bool     `mapstructure:"resume"`
	StorePath   string   `mapstructure:"storePath"`
}

const defaultConfigFile = "files/config.yaml"

func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigFile
	}
	viper.SetConfigFile(path)

	viper.SetEnvPrefix("TUSDEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// The default file is optional; an explicitly requested one is not.
		if explicit {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.externalUrl", "http://localhost:8080")
	viper.SetDefault("server.tokenTtlMinutes", 60)
	viper.SetDefault("server.registryDriver", "sqlite3")
	viper.SetDefault("server.registryDsn", "files/tus-demo.db")
	viper.SetDefault("server.migrationsPath", "file://files/migrations")
	viper.SetDefault("server.maxFileSize", "5GB")
	viper.SetDefault("server.maxRequestBody", "64MB")
	viper.SetDefault("upstream.timeoutSeconds", 60)
	viper.SetDefault("upstream.retryMax", 3)
	viper.SetDefault("client.endpoint", "http://localhost:8080")
	viper.SetDefault("client.chunkSize", "5MB")
	viper.SetDefault("client.retryDelays", []string{"0s", "1s", "3s", "5s"})
	viper.SetDefault("client.resume", true)
	viper.SetDefault("client.storePath", "files/resume.db")
}

func (s *ServerConfig) TokenTTL() time.Duration {
	return time.Duration(s.TokenTTLMinutes) * time.Minute
}

func (s *ServerConfig) MaxFileSizeBytes() (int64, error) {
	return units.RAMInBytes(s.MaxFileSize)
}

func (s *ServerConfig) MaxRequestBodyBytes() (int64, error) {
	return units.RAMInBytes(s.MaxRequestBody)
}

func (u *UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

func (c *ClientConfig) ChunkSizeBytes() (int64, error) {
	return units.RAMInBytes(c.ChunkSize)
}

func (c *ClientConfig) ParsedRetryDelays() ([]time.Duration, error) {
	delays := make([]time.Duration, 0, len(c.RetryDelays))
	for _, raw := range c.RetryDelays {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid retry delay %q: %w", raw, err)
		}
		delays = append(delays, d)
	}
	return delays, nil
}
