package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/rntrec/internal/dataset"
)

// ErrCountRange is returned by Global.Count for a count outside the configured bounds.
var ErrCountRange = errors.New("recommendation count out of range")

// Schema names the source columns the loader needs.
type Schema struct {
	Region    string `mapstructure:"region" yaml:"region" validate:"required"`
	TradeName string `mapstructure:"trade_name" yaml:"trade_name" validate:"required"`
	Category  string `mapstructure:"category" yaml:"category" validate:"required"`
	Locality  string `mapstructure:"locality" yaml:"locality" validate:"required"`
	Employees string `mapstructure:"employees" yaml:"employees" validate:"required"`
	Beds      string `mapstructure:"beds" yaml:"beds" validate:"required"`
	Rooms     string `mapstructure:"rooms" yaml:"rooms" validate:"required"`
}

// Global configuration structure.
type Global struct {
	Source    string `mapstructure:"source" yaml:"source" validate:"required"`
	Region    string `mapstructure:"region" yaml:"region" validate:"required"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet,omitempty"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter,omitempty" validate:"omitempty,len=1"`
	Schema    Schema `mapstructure:"schema" yaml:"schema"`

	// Recommendation count bounds
	RecommendDefault int `mapstructure:"recommend_default" yaml:"recommend_default" validate:"gtefield=RecommendMin,ltefield=RecommendMax"`
	RecommendMin     int `mapstructure:"recommend_min" yaml:"recommend_min" validate:"gte=1"`
	RecommendMax     int `mapstructure:"recommend_max" yaml:"recommend_max" validate:"gtefield=RecommendMin"`

	ReportTopK int `mapstructure:"report_top_k" yaml:"report_top_k" validate:"gte=0"`
	CacheSize  int `mapstructure:"cache_size" yaml:"cache_size" validate:"gte=1"`

	ListenAddr  string   `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"source", "region", "sheet", "delimiter",
	"schema.region", "schema.trade_name", "schema.category", "schema.locality",
	"schema.employees", "schema.beds", "schema.rooms",
	"recommend_default", "recommend_min", "recommend_max",
	"report_top_k", "cache_size", "listen_addr", "cors_origins", "rate_limit",
	"log_level", "log_format",
}

func setDefaults(v *viper.Viper) {
	s := dataset.DefaultSchema()
	v.SetDefault("source", dataset.DefaultSource)
	v.SetDefault("region", dataset.DefaultRegion)
	v.SetDefault("sheet", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("schema.region", s.Region)
	v.SetDefault("schema.trade_name", s.TradeName)
	v.SetDefault("schema.category", s.Category)
	v.SetDefault("schema.locality", s.Locality)
	v.SetDefault("schema.employees", s.Employees)
	v.SetDefault("schema.beds", s.Beds)
	v.SetDefault("schema.rooms", s.Rooms)
	v.SetDefault("recommend_default", 5)
	v.SetDefault("recommend_min", 1)
	v.SetDefault("recommend_max", 10)
	v.SetDefault("report_top_k", 10)
	v.SetDefault("cache_size", 4)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("rate_limit", 0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
}

// Dir returns ~/.rntrec.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".rntrec"), nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
// A missing config file is not an error; a malformed one is.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RNTREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.rntrec/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation in one error.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "gtefield":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be a single character", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Set assigns a value by key, validating the result. On error c is unchanged.
func (c *Global) Set(key, val string) error {
	next := *c
	var err error
	atoi := func(dst *int) {
		n, perr := strconv.Atoi(strings.TrimSpace(val))
		if perr != nil {
			err = fmt.Errorf("invalid int for %s: %q", key, val)
			return
		}
		*dst = n
	}
	switch key {
	case "source":
		next.Source = val
	case "region":
		next.Region = val
	case "sheet":
		next.Sheet = val
	case "delimiter":
		next.Delimiter = val
	case "schema.region":
		next.Schema.Region = val
	case "schema.trade_name":
		next.Schema.TradeName = val
	case "schema.category":
		next.Schema.Category = val
	case "schema.locality":
		next.Schema.Locality = val
	case "schema.employees":
		next.Schema.Employees = val
	case "schema.beds":
		next.Schema.Beds = val
	case "schema.rooms":
		next.Schema.Rooms = val
	case "recommend_default":
		atoi(&next.RecommendDefault)
	case "recommend_min":
		atoi(&next.RecommendMin)
	case "recommend_max":
		atoi(&next.RecommendMax)
	case "report_top_k":
		atoi(&next.ReportTopK)
	case "cache_size":
		atoi(&next.CacheSize)
	case "listen_addr":
		next.ListenAddr = val
	case "cors_origins":
		next.CORSOrigins = splitList(val)
	case "rate_limit":
		atoi(&next.RateLimit)
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "source":
		return c.Source, true
	case "region":
		return c.Region, true
	case "sheet":
		return c.Sheet, true
	case "delimiter":
		return c.Delimiter, true
	case "schema.region":
		return c.Schema.Region, true
	case "schema.trade_name":
		return c.Schema.TradeName, true
	case "schema.category":
		return c.Schema.Category, true
	case "schema.locality":
		return c.Schema.Locality, true
	case "schema.employees":
		return c.Schema.Employees, true
	case "schema.beds":
		return c.Schema.Beds, true
	case "schema.rooms":
		return c.Schema.Rooms, true
	case "recommend_default":
		return fmt.Sprint(c.RecommendDefault), true
	case "recommend_min":
		return fmt.Sprint(c.RecommendMin), true
	case "recommend_max":
		return fmt.Sprint(c.RecommendMax), true
	case "report_top_k":
		return fmt.Sprint(c.ReportTopK), true
	case "cache_size":
		return fmt.Sprint(c.CacheSize), true
	case "listen_addr":
		return c.ListenAddr, true
	case "cors_origins":
		return strings.Join(c.CORSOrigins, ","), true
	case "rate_limit":
		return fmt.Sprint(c.RateLimit), true
	case "log_level":
		return c.LogLevel, true
	case "log_format":
		return c.LogFormat, true
	}
	return "", false
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DatasetOptions converts the loader settings.
func (c *Global) DatasetOptions() dataset.Options {
	opt := dataset.DefaultOptions()
	opt.Region = c.Region
	opt.Sheet = c.Sheet
	if c.Delimiter != "" {
		opt.Delimiter, _ = utf8.DecodeRuneInString(c.Delimiter)
	}
	opt.Schema = dataset.Schema{
		Region:    c.Schema.Region,
		TradeName: c.Schema.TradeName,
		Category:  c.Schema.Category,
		Locality:  c.Schema.Locality,
		Employees: c.Schema.Employees,
		Beds:      c.Schema.Beds,
		Rooms:     c.Schema.Rooms,
	}
	return opt
}

// Count resolves a requested recommendation count: 0 means the default,
// anything outside [RecommendMin, RecommendMax] is ErrCountRange.
func (c *Global) Count(n int) (int, error) {
	if n == 0 {
		return c.RecommendDefault, nil
	}
	if n < c.RecommendMin || n > c.RecommendMax {
		return 0, fmt.Errorf("%w: %d (allowed %d-%d)", ErrCountRange, n, c.RecommendMin, c.RecommendMax)
	}
	return n, nil
}
