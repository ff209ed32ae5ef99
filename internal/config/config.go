// Package config loads impactscan settings from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/impactscan/internal/effort"
	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/model"
	"github.com/phobologic/impactscan/internal/report"
	"github.com/phobologic/impactscan/internal/rules"
	"github.com/phobologic/impactscan/internal/textenc"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "impactscan.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMPACTSCAN_"

// Config is the full configuration of a run.
type Config struct {
	Input       InputConfig     `yaml:"input"`
	Output      OutputConfig    `yaml:"output"`
	FileClasses FileClassConfig `yaml:"file_classes"`
	Effort      EffortConfig    `yaml:"effort"`
	Logging     LoggingConfig   `yaml:"logging"`

	// CacheSize is the number of compiled term-set rule lists kept in memory.
	CacheSize int `yaml:"cache_size"`
}

// InputConfig locates and decodes the input files.
type InputConfig struct {
	Transcript    string `yaml:"transcript"`
	Terms         string `yaml:"terms"`
	Encoding      string `yaml:"encoding"`
	TermDelimiter string `yaml:"term_delimiter"`
}

// OutputConfig controls the reports.
type OutputConfig struct {
	Dir       string   `yaml:"dir"`
	Formats   []string `yaml:"formats"`
	Delimiter string   `yaml:"delimiter"`
	// DB is an optional SQLite path; empty disables the results store.
	DB string `yaml:"db"`
}

// FileClassConfig is the file-name prefix table.
type FileClassConfig struct {
	ScriptPrefix     string   `yaml:"script_prefix"`
	OfficialPrefixes []string `yaml:"official_prefixes"`
}

// EffortConfig is the pricing model. Categories are keyed by slug
// (validacao, logica_negocio, ...).
type EffortConfig struct {
	BufferPercent float64                   `yaml:"buffer_percent"`
	Categories    map[string]CategoryEffort `yaml:"categories"`
	Activities    []ActivityEffort          `yaml:"activities"`
}

// CategoryEffort is the cost model of one category.
type CategoryEffort struct {
	DevHours  float64 `yaml:"dev_hours"`
	TestHours float64 `yaml:"test_hours"`
	Scaling   string  `yaml:"scaling"`
	K         float64 `yaml:"k,omitempty"`
	Cap       float64 `yaml:"cap,omitempty"`
	Rationale string  `yaml:"rationale"`
}

// ActivityEffort is a baseline activity.
type ActivityEffort struct {
	Name      string  `yaml:"name"`
	DevHours  float64 `yaml:"dev_hours"`
	TestHours float64 `yaml:"test_hours"`
	Rationale string  `yaml:"rationale"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	m := effort.DefaultModel()
	cats := make(map[string]CategoryEffort, len(m.Entries))
	for _, e := range m.Entries {
		cats[e.Category.Slug()] = CategoryEffort{
			DevHours:  e.DevHours,
			TestHours: e.TestHours,
			Scaling:   string(e.Scaling),
			K:         e.K,
			Cap:       e.Cap,
			Rationale: e.Rationale,
		}
	}
	acts := make([]ActivityEffort, 0, len(m.Activities))
	for _, a := range m.Activities {
		acts = append(acts, ActivityEffort(a))
	}

	return &Config{
		Input: InputConfig{
			Transcript:    "busca.txt",
			Terms:         "termos.csv",
			Encoding:      "utf-8",
			TermDelimiter: ";",
		},
		Output: OutputConfig{
			Dir:       "relatorios",
			Formats:   []string{"csv"},
			Delimiter: ";",
		},
		FileClasses: FileClassConfig{
			ScriptPrefix:     fileclass.DefaultScriptPrefix,
			OfficialPrefixes: append([]string(nil), fileclass.DefaultOfficialPrefixes...),
		},
		Effort: EffortConfig{
			BufferPercent: m.BufferPercent,
			Categories:    cats,
			Activities:    acts,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		CacheSize: rules.DefaultCacheSize,
	}
}

// Load returns the defaults overlaid with the YAML file at path. When
// required is false a missing file is not an error.
func Load(path string, required bool) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IMPACTSCAN_* variables read through getenv.
// Malformed numbers are reported instead of ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = splitList(v)
		}
	}

	str("TRANSCRIPT", &c.Input.Transcript)
	str("TERMS", &c.Input.Terms)
	str("ENCODING", &c.Input.Encoding)
	str("TERM_DELIMITER", &c.Input.TermDelimiter)
	str("OUTPUT_DIR", &c.Output.Dir)
	list("FORMATS", &c.Output.Formats)
	str("DELIMITER", &c.Output.Delimiter)
	str("DB", &c.Output.DB)
	str("SCRIPT_PREFIX", &c.FileClasses.ScriptPrefix)
	list("OFFICIAL_PREFIXES", &c.FileClasses.OfficialPrefixes)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if v := getenv(EnvPrefix + "BUFFER_PERCENT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sBUFFER_PERCENT: %w", EnvPrefix, err)
		}
		c.Effort.BufferPercent = f
	}
	if v := getenv(EnvPrefix + "CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_SIZE: %w", EnvPrefix, err)
		}
		c.CacheSize = n
	}
	return nil
}

// LoadFromEnv is ApplyEnv over the process environment.
func (c *Config) LoadFromEnv() error {
	return c.ApplyEnv(os.Getenv)
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if err := textenc.Validate(c.Input.Encoding); err != nil {
		return fmt.Errorf("input.encoding: %w", err)
	}
	if _, err := singleRune(c.Input.TermDelimiter); err != nil {
		return fmt.Errorf("input.term_delimiter: %w", err)
	}
	if _, err := singleRune(c.Output.Delimiter); err != nil {
		return fmt.Errorf("output.delimiter: %w", err)
	}
	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("output.formats must not be empty")
	}
	for _, f := range c.Output.Formats {
		if _, err := report.EncoderFor(f, 0); err != nil {
			return fmt.Errorf("output.formats: %w", err)
		}
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}

	nonEmpty := 0
	for _, p := range c.FileClasses.OfficialPrefixes {
		if strings.TrimSpace(p) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return fmt.Errorf("file_classes.official_prefixes must not be empty")
	}

	if _, err := c.EffortModel(); err != nil {
		return fmt.Errorf("effort: %w", err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}
	return nil
}

// EffortModel converts the effort section into a validated model.
// Categories missing from the section keep their default entry.
func (c *Config) EffortModel() (effort.Model, error) {
	m := effort.DefaultModel()
	m.BufferPercent = c.Effort.BufferPercent

	for slug, ce := range c.Effort.Categories {
		cat, err := model.ParseCategory(slug)
		if err != nil {
			return effort.Model{}, err
		}
		for i := range m.Entries {
			if m.Entries[i].Category != cat {
				continue
			}
			m.Entries[i] = effort.Entry{
				Category:  cat,
				DevHours:  ce.DevHours,
				TestHours: ce.TestHours,
				Scaling:   effort.Scaling(ce.Scaling),
				K:         ce.K,
				Cap:       ce.Cap,
				Rationale: ce.Rationale,
			}
		}
	}

	if c.Effort.Activities != nil {
		m.Activities = m.Activities[:0]
		for _, a := range c.Effort.Activities {
			m.Activities = append(m.Activities, effort.Activity(a))
		}
	}

	if err := m.Validate(); err != nil {
		return effort.Model{}, err
	}
	return m, nil
}

// Classifier builds the file classifier from the prefix table.
func (c *Config) Classifier() *fileclass.Classifier {
	return fileclass.New(c.FileClasses.ScriptPrefix, c.FileClasses.OfficialPrefixes)
}

// TermDelimiter returns the term-table delimiter, ';' when unset.
func (c *Config) TermDelimiter() rune {
	r, err := singleRune(c.Input.TermDelimiter)
	if err != nil {
		return ';'
	}
	return r
}

// OutputDelimiter returns the csv report delimiter, ';' when unset.
func (c *Config) OutputDelimiter() rune {
	r, err := singleRune(c.Output.Delimiter)
	if err != nil {
		return ';'
	}
	return r
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func singleRune(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("want a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
