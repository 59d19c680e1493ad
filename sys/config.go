package sys

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const ProjectName = "akeome"

type Config struct {
	Token         string `envconfig:"DISCORD_TOKEN"`
	AdminUserID   string `envconfig:"ADMIN_USER_ID"`
	GuildID       string `envconfig:"GUILD_ID"`
	TriggerPhrase string `envconfig:"TRIGGER_PHRASE" default:"あけおめ"`
	CommandPrefix string `envconfig:"COMMAND_PREFIX" default:"!"`

	ResetOffsetHours    int           `envconfig:"RESET_TZ_OFFSET_HOURS" default:"9"`
	AnnualPollInterval  time.Duration `envconfig:"ANNUAL_POLL_INTERVAL" default:"1h"`
	PresenceInterval    time.Duration `envconfig:"PRESENCE_INTERVAL" default:"5s"`
	ThreadRatePerMinute int           `envconfig:"THREAD_RATE_PER_MINUTE" default:"30"`

	Store struct {
		Backend     string `envconfig:"STORE_BACKEND" default:"file"`
		Path        string `envconfig:"STORE_PATH"`
		Key         string `envconfig:"STORE_KEY" default:"akeome:state"`
		RedisURL    string `envconfig:"REDIS_URL"`
		PostgresDSN string `envconfig:"PG_DSN"`

		S3 struct {
			Endpoint  string `envconfig:"S3_ENDPOINT"`
			Bucket    string `envconfig:"S3_BUCKET"`
			AccessKey string `envconfig:"S3_ACCESS_KEY"`
			SecretKey string `envconfig:"S3_SECRET_KEY"`
			UseSSL    bool   `envconfig:"S3_USE_SSL" default:"true"`
		} `envconfig:""`
	} `envconfig:""`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
	Silent      bool   `envconfig:"SILENT"`
	LogFile     bool   `envconfig:"LOG_FILE"`
	Debug       bool   `envconfig:"DEBUG"`

	AdminID snowflake.ID `ignored:"true"`
}

// Validate reports every missing or invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Token == "" {
		errs = append(errs, fmt.Errorf(MsgConfigMissing, "DISCORD_TOKEN"))
	}

	if c.AdminUserID == "" {
		errs = append(errs, fmt.Errorf(MsgConfigMissing, "ADMIN_USER_ID"))
	} else if id, err := snowflake.Parse(c.AdminUserID); err != nil {
		errs = append(errs, fmt.Errorf(MsgConfigInvalid, "ADMIN_USER_ID", err))
	} else {
		c.AdminID = id
	}

	if c.GuildID != "" {
		if _, err := snowflake.Parse(c.GuildID); err != nil {
			errs = append(errs, fmt.Errorf(MsgConfigInvalid, "GUILD_ID", err))
		}
	}

	if c.TriggerPhrase == "" {
		errs = append(errs, fmt.Errorf(MsgConfigMissing, "TRIGGER_PHRASE"))
	}
	if c.ResetOffsetHours < -12 || c.ResetOffsetHours > 14 {
		errs = append(errs, fmt.Errorf(MsgConfigInvalid, "RESET_TZ_OFFSET_HOURS", errors.New("must be between -12 and 14")))
	}
	if c.AnnualPollInterval <= 0 {
		errs = append(errs, fmt.Errorf(MsgConfigInvalid, "ANNUAL_POLL_INTERVAL", errors.New("must be positive")))
	}
	if c.PresenceInterval < time.Second {
		errs = append(errs, fmt.Errorf(MsgConfigInvalid, "PRESENCE_INTERVAL", errors.New("must be at least 1s")))
	}
	if c.ThreadRatePerMinute <= 0 {
		errs = append(errs, fmt.Errorf(MsgConfigInvalid, "THREAD_RATE_PER_MINUTE", errors.New("must be positive")))
	}

	return errors.Join(errs...)
}

// Location is the fixed zone every day boundary is computed in.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.ResetOffsetHours), c.ResetOffsetHours*60*60)
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
