package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"orasp/internal/orasp"
)

// Config holds all configuration for the generator binaries.
type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=development production test"`
	LogLevel    string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	OutputDir string `mapstructure:"output_dir" validate:"required"`
	Format    string `mapstructure:"format" validate:"oneof=dat json yaml"`
	Sizes     string `mapstructure:"sizes"`
	Count     int    `mapstructure:"count" validate:"gte=1"`
	Seed      int64  `mapstructure:"seed"`
	Workers   int    `mapstructure:"workers" validate:"gte=1,lte=256"`

	CatalogDSN      string `mapstructure:"catalog_dsn"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	HTTPBind        string `mapstructure:"http_bind" validate:"required"`

	S3     S3Config     `mapstructure:"s3"`
	Params orasp.Params `mapstructure:"params"`
}

// S3Config enables uploading batch output when Bucket is set.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region" validate:"required_with=Bucket"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Load reads defaults, then the config file (path, or orasp.yaml in . and
// ./config when path is empty), then ORASP_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orasp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORASP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	return cfg.Params.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("output_dir", "generated_instances")
	v.SetDefault("format", "dat")
	v.SetDefault("sizes", "15x4x4")
	v.SetDefault("count", 1)
	v.SetDefault("seed", 1000)
	v.SetDefault("workers", 4)

	v.SetDefault("catalog_dsn", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("http_bind", "127.0.0.1:8080")

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_path_style", false)

	p := orasp.DefaultParams()
	v.SetDefault("params.prep_time.min", p.PrepTime.Min)
	v.SetDefault("params.prep_time.max", p.PrepTime.Max)
	v.SetDefault("params.surgery_time.min", p.SurgeryTime.Min)
	v.SetDefault("params.surgery_time.max", p.SurgeryTime.Max)
	v.SetDefault("params.surgery_dist", string(p.SurgeryDist))
	v.SetDefault("params.surgery_mu", p.SurgeryMu)
	v.SetDefault("params.surgery_sigma", p.SurgerySigma)
	v.SetDefault("params.clean_time.min", p.CleanTime.Min)
	v.SetDefault("params.clean_time.max", p.CleanTime.Max)
	v.SetDefault("params.compatibility_density", p.CompatibilityDensity)
	v.SetDefault("params.capability_density", p.CapabilityDensity)
	v.SetDefault("params.all_rooms_available", p.AllRoomsAvailable)
	v.SetDefault("params.operation_types", p.OperationTypes)
	v.SetDefault("params.type_mode", string(p.TypeMode))
	v.SetDefault("params.capability_mode", string(p.CapabilityMode))
	v.SetDefault("params.setup_times", p.SetupTimes)
	v.SetDefault("params.max_setup_time", p.MaxSetupTime)
	v.SetDefault("params.setup_scale", p.SetupScale)
	v.SetDefault("params.same_type_setup", p.SameTypeSetup)
	v.SetDefault("params.symmetric_setup", p.SymmetricSetup)
	v.SetDefault("params.horizon", p.Horizon)
	v.SetDefault("params.horizon_slack", p.HorizonSlack)
	v.SetDefault("params.window_mode", string(p.WindowMode))
	v.SetDefault("params.window_slack", p.WindowSlack)
	v.SetDefault("params.window_subset_rate", p.WindowSubsetRate)
	v.SetDefault("params.big_m_floor", p.BigMFloor)
}
