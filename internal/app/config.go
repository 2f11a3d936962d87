package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"

	"github.com/yungbote/reviewgate-backend/internal/observability"
)

const envPrefix = "REVIEWGATE"

type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	Log       LogConfig                `mapstructure:"log"`
	Database  DatabaseConfig           `mapstructure:"database"`
	Redis     RedisConfig              `mapstructure:"redis"`
	Auth      AuthConfig               `mapstructure:"auth"`
	Review    ReviewConfig             `mapstructure:"review"`
	Learning  LearningConfig           `mapstructure:"learning"`
	RateLimit RateLimitConfig          `mapstructure:"ratelimit"`
	AI        AIConfig                 `mapstructure:"ai"`
	Metrics   MetricsConfig            `mapstructure:"metrics"`
	Otel      observability.OtelConfig `mapstructure:"otel"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	Mode        string   `mapstructure:"mode" validate:"oneof=debug release test"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Mode     string `mapstructure:"mode" validate:"oneof=development production test"`
	Level    string `mapstructure:"level"`
	Redact   bool   `mapstructure:"redact"`
	HashSalt string `mapstructure:"hash_salt"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name" validate:"required_if=Driver postgres"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig: an empty Addr selects the in-process counter store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=16"`
}

type ReviewConfig struct {
	FirstIntervalDays  int     `mapstructure:"first_interval_days" validate:"gte=1"`
	SecondIntervalDays int     `mapstructure:"second_interval_days" validate:"gtefield=FirstIntervalDays"`
	InitialEaseFactor  float64 `mapstructure:"initial_ease_factor" validate:"gtefield=MinEaseFactor"`
	MinEaseFactor      float64 `mapstructure:"min_ease_factor" validate:"gt=0"`
	EaseBase           float64 `mapstructure:"ease_base"`
	EaseLinear         float64 `mapstructure:"ease_linear"`
	EaseQuadratic      float64 `mapstructure:"ease_quadratic"`

	DefaultDailyCap     int     `mapstructure:"default_daily_cap" validate:"gte=1,lte=200"`
	MaxTopics           int     `mapstructure:"max_topics" validate:"gte=1"`
	QuestionsPerTopic   int     `mapstructure:"questions_per_topic" validate:"gte=1"`
	MaxItems            int     `mapstructure:"max_items" validate:"gte=1"`
	MinutesPerItem      float64 `mapstructure:"minutes_per_item" validate:"gt=0"`
	MaxEstimatedMinutes int     `mapstructure:"max_estimated_minutes" validate:"gte=1"`
	Timezone            string  `mapstructure:"timezone" validate:"location"`
	MaxWriteAttempts    uint    `mapstructure:"max_write_attempts" validate:"gte=1"`
}

type LearningConfig struct {
	ConfidenceIncrement float64 `mapstructure:"confidence_increment" validate:"gt=0"`
	ConfidenceCap       float64 `mapstructure:"confidence_cap" validate:"gte=0"`
	PatternRetention    int     `mapstructure:"pattern_retention"`
	Timezone            string  `mapstructure:"timezone" validate:"location"`
}

type TierConfig struct {
	Quota  int64         `mapstructure:"quota" validate:"gte=0"`
	Window time.Duration `mapstructure:"window" validate:"gt=0"`
}

type RateLimitConfig struct {
	DefaultTier string                `mapstructure:"default_tier" validate:"required"`
	Tiers       map[string]TierConfig `mapstructure:"tiers" validate:"required,dive"`
}

type AIConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries uint          `mapstructure:"max_retries" validate:"lte=10"`
}

type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CollectInterval time.Duration `mapstructure:"collect_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "")
	v.SetDefault("log.redact", true)
	v.SetDefault("log.hash_salt", "")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "reviewgate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "reviewgate.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "reviewgate:")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("review.first_interval_days", 1)
	v.SetDefault("review.second_interval_days", 6)
	v.SetDefault("review.initial_ease_factor", 2.5)
	v.SetDefault("review.min_ease_factor", 1.3)
	v.SetDefault("review.ease_base", 0.1)
	v.SetDefault("review.ease_linear", 0.08)
	v.SetDefault("review.ease_quadratic", 0.02)
	v.SetDefault("review.default_daily_cap", 20)
	v.SetDefault("review.max_topics", 5)
	v.SetDefault("review.questions_per_topic", 2)
	v.SetDefault("review.max_items", 10)
	v.SetDefault("review.minutes_per_item", 0.5)
	v.SetDefault("review.max_estimated_minutes", 5)
	v.SetDefault("review.timezone", "Local")
	v.SetDefault("review.max_write_attempts", 5)

	v.SetDefault("learning.confidence_increment", 0.05)
	v.SetDefault("learning.confidence_cap", 1.0)
	v.SetDefault("learning.pattern_retention", 500)
	v.SetDefault("learning.timezone", "Local")

	v.SetDefault("ratelimit.default_tier", "free")
	v.SetDefault("ratelimit.tiers", map[string]interface{}{
		"free": map[string]interface{}{"quota": 20, "window": "1h"},
		"pro":  map[string]interface{}{"quota": 200, "window": "1h"},
	})

	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.timeout", "20s")
	v.SetDefault("ai.max_retries", 2)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.collect_interval", "15s")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "reviewgate")
	v.SetDefault("otel.environment", "")
	v.SetDefault("otel.version", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sample_ratio", 0.1)
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/reviewgate")
	}
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// LoadConfig reads an optional YAML file, then REVIEWGATE_* environment
// overrides (e.g. REVIEWGATE_DATABASE_HOST), and validates the result.
func LoadConfig(configFile string) (*Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EffectiveSettings returns the merged settings tree with secrets masked.
func EffectiveSettings(configFile string) (map[string]interface{}, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}
	settings := v.AllSettings()
	maskSecrets(settings)
	return settings, nil
}

func maskSecrets(m map[string]interface{}) {
	for k, val := range m {
		if isSecretSetting(k) {
			if fmt.Sprint(val) != "" {
				m[k] = "********"
			}
			continue
		}
		if nested, ok := val.(map[string]interface{}); ok {
			maskSecrets(nested)
		}
	}
}

func isSecretSetting(key string) bool {
	k := strings.ToLower(key)
	for _, frag := range []string{"secret", "password", "api_key", "hash_salt", "headers"} {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(trans))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if _, ok := c.RateLimit.Tiers[strings.ToLower(c.RateLimit.DefaultTier)]; !ok {
		return fmt.Errorf("invalid config: ratelimit.default_tier %q is not a configured tier", c.RateLimit.DefaultTier)
	}
	return nil
}

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("location", isLoadableLocation); err != nil {
		return nil, nil, fmt.Errorf("failed to register location validation: %w", err)
	}
	if err := validate.RegisterTranslation("location", trans, func(ut ut.Translator) error {
		return ut.Add("location", "{0} must be an IANA time zone name", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("location", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register location translation: %w", err)
	}
	return validate, trans, nil
}

func isLoadableLocation(fl validator.FieldLevel) bool {
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// location resolves a validated zone name; "" and "Local" mean the host zone.
func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" {
		return time.Local
	}
	return loc
}
