// Package config loads dwarfgen settings from dwarfgen.yaml, DWARFGEN_*
// environment variables and command line flags.
package config

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/logging"
	"github.com/orizon-lang/dwarfgen/internal/objfile"
)

// EnvPrefix prefixes every environment override, e.g. DWARFGEN_DWARF_VERSION.
const EnvPrefix = "DWARFGEN"

// Config is the resolved configuration.
type Config struct {
	Dwarf   DwarfConfig  `mapstructure:"dwarf"`
	Workers int          `mapstructure:"workers"`
	Log     LogConfig    `mapstructure:"log"`
	Output  OutputConfig `mapstructure:"output"`
	Server  ServerConfig `mapstructure:"server"`
	Watch   WatchConfig  `mapstructure:"watch"`
}

// DwarfConfig selects the format policy.
type DwarfConfig struct {
	Version          uint16 `mapstructure:"version"`
	AddrSize         uint8  `mapstructure:"addr_size"`
	SplitDwarf       bool   `mapstructure:"split"`
	TypeUnits        bool   `mapstructure:"type_units"`
	FrameRegister    int    `mapstructure:"frame_register"`
	GNUTLSOpcode     bool   `mapstructure:"gnu_tls_opcode"`
	FunctionSections bool   `mapstructure:"function_sections"`
	BigEndian        bool   `mapstructure:"big_endian"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// OutputConfig names the object file written by build.
type OutputConfig struct {
	Format   string `mapstructure:"format"`
	Path     string `mapstructure:"path"`
	TextBase uint64 `mapstructure:"text_base"`
}

// ServerConfig configures the HTTP/3 inspection server.
type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// WatchConfig configures rebuild on change.
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dwarf.version", 4)
	v.SetDefault("dwarf.addr_size", 8)
	v.SetDefault("dwarf.split", false)
	v.SetDefault("dwarf.type_units", false)
	v.SetDefault("dwarf.frame_register", 6)
	v.SetDefault("dwarf.gnu_tls_opcode", true)
	v.SetDefault("dwarf.function_sections", false)
	v.SetDefault("dwarf.big_endian", false)
	v.SetDefault("workers", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("output.format", "elf")
	v.SetDefault("output.path", "")
	v.SetDefault("output.text_base", 0x1000)
	v.SetDefault("server.addr", "localhost:4433")
	v.SetDefault("watch.debounce_ms", 200)
}

// New returns a viper instance with defaults and environment lookup set.
// If file is empty, dwarfgen.yaml is searched in the working directory.
func New(file string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("dwarfgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds flags to configuration keys. Keys without a flag in fs
// are skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file if present and decodes the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the policy and object writer would reject
// later with a less helpful message.
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("dwarf: %w", err)
	}
	if _, err := objfile.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Policy converts the dwarf section into a validated format policy.
func (c *Config) Policy() (dwarfunit.Policy, error) {
	p := dwarfunit.Policy{
		DwarfVersion:     c.Dwarf.Version,
		AddrSize:         c.Dwarf.AddrSize,
		SplitDwarf:       c.Dwarf.SplitDwarf,
		TypeUnits:        c.Dwarf.TypeUnits,
		FrameRegister:    c.Dwarf.FrameRegister,
		GNUTLSOpcode:     c.Dwarf.GNUTLSOpcode,
		FunctionSections: c.Dwarf.FunctionSections,
		LittleEndian:     !c.Dwarf.BigEndian,
	}
	if err := p.Validate(); err != nil {
		return dwarfunit.Policy{}, err
	}
	return p, nil
}

// Format returns the parsed object format.
func (c *Config) Format() objfile.Format {
	f, _ := objfile.ParseFormat(c.Output.Format)
	return f
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Pretty = c.Log.Pretty
	return lc
}
