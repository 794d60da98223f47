package config

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvConnectionString = "REDIS_CONNECTIONSTRING"
	EnvPrefix           = "REDIS_WATCHER"
)

var ErrMissingConnectionString = errors.New("missing connection string")

type PingConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Script       string        `mapstructure:"script"`
}

type Config struct {
	ConnectionString string        `mapstructure:"connection_string"`
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
	Heartbeat        time.Duration `mapstructure:"heartbeat"`
	Ping             PingConfig    `mapstructure:"ping"`
}

// Load reads the configuration from the environment, falling back to the
// first of args for the connection string. It returns
// ErrMissingConnectionString when neither source provides one.
func Load(args []string) (*Config, error) {
	v := viper.New()

	v.SetDefault("retry_interval", "15s")
	v.SetDefault("heartbeat", "1s")
	v.SetDefault("ping.initial_delay", "1s")
	v.SetDefault("ping.interval", "15s")
	v.SetDefault("ping.timeout", "10s")
	v.SetDefault("ping.script", "return 42")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("connection_string", EnvConnectionString); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ConnectionString = strings.TrimSpace(cfg.ConnectionString)
	if cfg.ConnectionString == "" && len(args) > 0 {
		cfg.ConnectionString = strings.TrimSpace(args[0])
	}
	if cfg.ConnectionString == "" {
		return nil, ErrMissingConnectionString
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ConnectionString, validation.Required),
		validation.Field(&c.RetryInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Heartbeat, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Ping,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PingConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.InitialDelay, validation.Required, validation.Min(time.Millisecond)),
					validation.Field(&pc.Interval, validation.Required, validation.Min(time.Millisecond)),
					validation.Field(&pc.Timeout, validation.Required, validation.Min(time.Millisecond)),
					validation.Field(&pc.Script, validation.Required, validation.By(notBlank)),
				)
			}),
		),
	)
}

func notBlank(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}
