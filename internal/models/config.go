package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrisdamba/coastersim/internal/coaster"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	OutputConsole  = "console"
	OutputJSON     = "json"
	OutputCSV      = "csv"
	OutputParquet  = "parquet"
	OutputKafka    = "kafka"
	OutputPostgres = "postgres"
)

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString renders the config as a libpq keyword/value string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type Config struct {
	Seed        int64 `mapstructure:"seed"`
	Cars        int   `mapstructure:"cars"`
	SeatsPerCar int   `mapstructure:"seats_per_car"`
	Passengers  int   `mapstructure:"passengers"`

	MinRideDuration        time.Duration `mapstructure:"min_ride_duration"`
	MaxRideDuration        time.Duration `mapstructure:"max_ride_duration"`
	PassengerArrivalJitter time.Duration `mapstructure:"passenger_arrival_jitter"`

	OutputDestination string             `mapstructure:"output_destination"`
	OutputPath        string             `mapstructure:"output_path"`
	OutputFolder      string             `mapstructure:"output_folder"`
	KafkaBrokerList   string             `mapstructure:"kafka_broker_list"`
	KafkaTopicPrefix  string             `mapstructure:"kafka_topic_prefix"`
	SessionTimeoutMs  int                `mapstructure:"session_timeout_ms"`
	CloudStorage      CloudStorageConfig `mapstructure:"cloud_storage"`
	Database          DatabaseConfig     `mapstructure:"database"`

	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	ShowProgress    bool   `mapstructure:"show_progress"`
	InvariantChecks bool   `mapstructure:"invariant_checks"`
}

// SetDefaults registers the default value of every config key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("cars", 2)
	v.SetDefault("seats_per_car", 4)
	v.SetDefault("passengers", 8)
	v.SetDefault("min_ride_duration", "0s")
	v.SetDefault("max_ride_duration", "5s")
	v.SetDefault("passenger_arrival_jitter", "100ms")
	v.SetDefault("output_destination", OutputConsole)
	v.SetDefault("output_path", "")
	v.SetDefault("output_folder", "rides")
	v.SetDefault("kafka_topic_prefix", "")
	v.SetDefault("kafka_broker_list", "localhost:9092")
	v.SetDefault("session_timeout_ms", 45000)
	v.SetDefault("cloud_storage.provider", "local")
	v.SetDefault("cloud_storage.bucket_name", "")
	v.SetDefault("cloud_storage.region", "us-east-1")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "coastersim")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("show_progress", true)
	v.SetDefault("invariant_checks", false)
}

// LoadConfig reads the configuration using Viper. An empty cfgFile means
// defaults, flags bound to v and COASTERSIM_* environment variables only.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("coastersim")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the park cannot run. Failures wrap
// coaster.ErrInvalidConfiguration.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Cars <= 0:
		return fmt.Errorf("%w: cars must be positive, got %d", coaster.ErrInvalidConfiguration, cfg.Cars)
	case cfg.SeatsPerCar <= 0:
		return fmt.Errorf("%w: seats_per_car must be positive, got %d", coaster.ErrInvalidConfiguration, cfg.SeatsPerCar)
	case cfg.Passengers < 0:
		return fmt.Errorf("%w: passengers must not be negative, got %d", coaster.ErrInvalidConfiguration, cfg.Passengers)
	case cfg.MinRideDuration < 0 || cfg.MaxRideDuration < cfg.MinRideDuration:
		return fmt.Errorf("%w: ride duration range [%s, %s] is invalid",
			coaster.ErrInvalidConfiguration, cfg.MinRideDuration, cfg.MaxRideDuration)
	case cfg.PassengerArrivalJitter < 0:
		return fmt.Errorf("%w: passenger_arrival_jitter must not be negative", coaster.ErrInvalidConfiguration)
	}

	switch cfg.OutputDestination {
	case OutputConsole, OutputKafka, OutputPostgres:
	case OutputParquet:
		if cfg.CloudStorage.Provider == "s3" {
			if cfg.CloudStorage.BucketName == "" {
				return fmt.Errorf("%w: cloud_storage.bucket_name is required for s3", coaster.ErrInvalidConfiguration)
			}
			break
		}
		if cfg.OutputPath == "" {
			return fmt.Errorf("%w: output_path is required for parquet output", coaster.ErrInvalidConfiguration)
		}
	case OutputJSON, OutputCSV:
		if cfg.OutputPath == "" {
			return fmt.Errorf("%w: output_path is required for %s output", coaster.ErrInvalidConfiguration, cfg.OutputDestination)
		}
	default:
		return fmt.Errorf("%w: unsupported output destination %q", coaster.ErrInvalidConfiguration, cfg.OutputDestination)
	}
	return nil
}
