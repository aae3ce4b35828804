// Package config loads daemon settings from the key=value config file and the command
// line. Flags override the file, the file overrides built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/models"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "/etc/cpu_throttle.conf"
	DefaultSocketPath = "/tmp/cpu_throttle.sock"
	DefaultPIDFile    = "/var/run/cpu_throttle.pid"
	DefaultProfileDir = "/var/lib/cpu_throttle/profiles"
	DefaultSkinsDir   = "/usr/share/cpu_throttle/skins"
	DefaultWebRoot    = "/usr/share/cpu_throttle/web"
	DefaultWebPort    = 8086
	DefaultSkinOwner  = "root:root"

	minWebPort = 1024
	maxWebPort = 65535
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the fully resolved daemon configuration.
type Config struct {
	ConfigFile string

	TempMax       int
	SafeMin       int
	SafeMax       int
	Sensor        string
	ThermalZone   int
	UseAvgTemp    bool
	ExcludedTypes []string

	WebPort    int // 0 = HTTP disabled
	SocketPath string
	PIDFile    string
	ProfileDir string
	SkinsDir   string
	WebRoot    string
	SysfsRoot  string
	SkinOwner  string

	LogFile  string
	LogLevel string
	DryRun   bool
	EventsDB string

	IOTimeout      time.Duration
	PollWait       time.Duration
	SampleInterval time.Duration
}

// flag name -> config key
var flagKeys = map[string]string{
	"dry-run":    "dry_run",
	"log":        "log_file",
	"sensor":     "sensor",
	"safe-min":   "safe_min",
	"safe-max":   "safe_max",
	"temp-max":   "temp_max",
	"web-port":   "web_port",
	"socket":     "socket_path",
	"sysfs-root": "sysfs_root",
	"events-db":  "events_db",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("temp_max", models.DefaultTempMax)
	v.SetDefault("safe_min", 0)
	v.SetDefault("safe_max", 0)
	v.SetDefault("sensor", "")
	v.SetDefault("web_port", 0)
	v.SetDefault("thermal_zone", models.AutoZone)
	v.SetDefault("use_avg_temp", false)
	v.SetDefault("excluded_types", "")
	v.SetDefault("socket_path", DefaultSocketPath)
	v.SetDefault("pid_file", DefaultPIDFile)
	v.SetDefault("profile_dir", DefaultProfileDir)
	v.SetDefault("skins_dir", DefaultSkinsDir)
	v.SetDefault("web_root", DefaultWebRoot)
	v.SetDefault("sysfs_root", "/sys")
	v.SetDefault("skin_owner", DefaultSkinOwner)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", logger.NormalLevel)
	v.SetDefault("dry_run", false)
	v.SetDefault("events_db", "")
	v.SetDefault("io_timeout", 5*time.Second)
	v.SetDefault("poll_wait", 250*time.Millisecond)
	v.SetDefault("sample_interval", time.Second)
}

// NewFlagSet declares the daemon's command-line flags.
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", DefaultConfigFile, "config file of key=value lines")
	f.Bool("dry-run", false, "simulate frequency setting (no writes)")
	f.String("log", "", "append log messages to a file")
	f.String("sensor", "", "manually specify temp sensor file")
	f.Int("safe-min", 0, "optional safe minimum frequency in kHz (e.g. 2000000)")
	f.Int("safe-max", 0, "optional safe maximum frequency in kHz (e.g. 3000000)")
	f.Int("temp-max", models.DefaultTempMax, "maximum temperature threshold in °C")
	f.Int("web-port", 0, fmt.Sprintf("enable web interface; use --web-port=N for a custom port (bare flag uses %d)", DefaultWebPort))
	f.Lookup("web-port").NoOptDefVal = fmt.Sprint(DefaultWebPort)
	f.String("socket", DefaultSocketPath, "control socket path")
	f.String("sysfs-root", "/sys", "sysfs mount point")
	f.String("events-db", "", "SQLite file for the event journal (disabled when empty)")
	f.Bool("verbose", false, "enable verbose logging")
	f.Bool("quiet", false, "quiet mode (errors only)")
	f.Bool("silent", false, "silent mode (no output)")
	return f
}

// Load parses args (without the program name) and the config file they select.
// pflag.ErrHelp is returned unchanged when -h/--help is given.
func Load(name string, args []string) (*Config, error) {
	f := NewFlagSet(name)
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	path, _ := f.GetString("config")
	if err := readFile(v, path); err != nil {
		return nil, err
	}

	cfg := fromViper(v)
	cfg.ConfigFile = path
	applyVerbosity(f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile merges the key=value file at path. A missing file is not an error.
func readFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	// key=value lines; viper decodes them with its dotenv codec
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		TempMax:        v.GetInt("temp_max"),
		SafeMin:        v.GetInt("safe_min"),
		SafeMax:        v.GetInt("safe_max"),
		Sensor:         v.GetString("sensor"),
		ThermalZone:    v.GetInt("thermal_zone"),
		UseAvgTemp:     v.GetBool("use_avg_temp"),
		ExcludedTypes:  SplitTypes(v.GetString("excluded_types")),
		WebPort:        v.GetInt("web_port"),
		SocketPath:     v.GetString("socket_path"),
		PIDFile:        v.GetString("pid_file"),
		ProfileDir:     v.GetString("profile_dir"),
		SkinsDir:       v.GetString("skins_dir"),
		WebRoot:        v.GetString("web_root"),
		SysfsRoot:      v.GetString("sysfs_root"),
		SkinOwner:      v.GetString("skin_owner"),
		LogFile:        v.GetString("log_file"),
		LogLevel:       v.GetString("log_level"),
		DryRun:         v.GetBool("dry_run"),
		EventsDB:       v.GetString("events_db"),
		IOTimeout:      v.GetDuration("io_timeout"),
		PollWait:       v.GetDuration("poll_wait"),
		SampleInterval: v.GetDuration("sample_interval"),
	}
}

// applyVerbosity lets --silent, --quiet and --verbose override log_level, in that
// order of precedence.
func applyVerbosity(f *pflag.FlagSet, cfg *Config) {
	for _, lv := range []string{logger.SilentLevel, logger.QuietLevel, logger.VerboseLevel} {
		if on, _ := f.GetBool(lv); on {
			cfg.LogLevel = lv
			return
		}
	}
}

// Validate checks the ranges the daemon cannot start with.
func (c *Config) Validate() error {
	if c.TempMax < models.TempMaxLow || c.TempMax > models.TempMaxHigh {
		return fmt.Errorf("%w: temp_max must be %d-%d°C, got %d", ErrInvalid, models.TempMaxLow, models.TempMaxHigh, c.TempMax)
	}
	if c.WebPort != 0 && (c.WebPort < minWebPort || c.WebPort > maxWebPort) {
		return fmt.Errorf("%w: web_port must be %d-%d, got %d", ErrInvalid, minWebPort, maxWebPort, c.WebPort)
	}
	if c.ThermalZone < models.AutoZone || c.ThermalZone > models.MaxZoneIndex {
		return fmt.Errorf("%w: thermal_zone must be %d..%d, got %d", ErrInvalid, models.AutoZone, models.MaxZoneIndex, c.ThermalZone)
	}
	if c.SafeMin < 0 || c.SafeMax < 0 {
		return fmt.Errorf("%w: safe_min and safe_max must not be negative", ErrInvalid)
	}
	if c.SocketPath == "" {
		return fmt.Errorf("%w: socket_path is empty", ErrInvalid)
	}
	return nil
}

// SplitTypes parses a comma separated list of zone type tokens into lowercase form.
// "none", "clear" and "" yield an empty list.
func SplitTypes(csv string) []string {
	csv = strings.TrimSpace(csv)
	if csv == "" || csv == "none" || csv == "clear" {
		return []string{}
	}
	out := []string{}
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
