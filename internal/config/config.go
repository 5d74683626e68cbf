package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	DataFile        string        `mapstructure:"DATA_FILE"`
	PostgresURL     string        `mapstructure:"POSTGRES_URL"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	StrictParse     bool          `mapstructure:"STRICT_PARSE"`
	CacheTTL        time.Duration `mapstructure:"CACHE_TTL"`
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	RIRs            []RIR         `mapstructure:"rirs"`
}

type RIR struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Load reads the configuration from the environment. Postgres and Redis are
// optional: an empty URL leaves that backend out.
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("DATA_FILE", "")
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("STRICT_PARSE", false)
	viper.SetDefault("CACHE_TTL", 24*time.Hour)
	viper.SetDefault("REFRESH_INTERVAL", 24*time.Hour)
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	var config Config

	// Default RIR configurations
	config.RIRs = []RIR{
		{Name: "ARIN", URL: "https://ftp.arin.net/pub/stats/arin/delegated-arin-extended-latest"},
		{Name: "RIPE", URL: "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-latest"},
		{Name: "APNIC", URL: "https://ftp.apnic.net/stats/apnic/delegated-apnic-latest"},
		{Name: "LACNIC", URL: "https://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-latest"},
		{Name: "AFRINIC", URL: "https://ftp.afrinic.net/stats/afrinic/delegated-afrinic-latest"},
	}

	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
