// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}
	Host struct {
		SysFS  string `yaml:"sysfs"`
		ProcFS string `yaml:"procfs"`
	}

	// Rapl configuration
	Rapl struct {
		// Path overrides the powercap root; derived from Host.SysFS when empty
		Path    string        `yaml:"path"`
		Sockets []int         `yaml:"sockets"`
		Polling time.Duration `yaml:"polling"` // 0 samples on events only
	}

	Profile struct {
		Iterations   int    `yaml:"iterations"`
		TokenPattern string `yaml:"tokenPattern"`
		// OutputFile receives the standard output of the workload
		OutputFile string `yaml:"outputFile"`
	}

	PrometheusOutput struct {
		DebugCollectors []string `yaml:"debugCollectors"`
	}

	Output struct {
		Format     string           `yaml:"format"`
		File       string           `yaml:"file"`
		NoColor    *bool            `yaml:"noColor"`
		Prometheus PrometheusOutput `yaml:"prometheus"`
	}

	Config struct {
		Log     Log     `yaml:"log"`
		Host    Host    `yaml:"host"`
		Rapl    Rapl    `yaml:"rapl"`
		Profile Profile `yaml:"profile"`
		Output  Output  `yaml:"output"`
	}
)

type SkipValidation int

const (
	SkipHostValidation SkipValidation = 1
)

// Output formats
const (
	TerminalFormat   = "terminal"
	JSONFormat       = "json"
	CSVFormat        = "csv"
	PrometheusFormat = "prometheus"
)

const (
	// RaplPathEnv overrides the default powercap root
	RaplPathEnv = "JOULE_PROFILER_RAPL_PATH"

	// DefaultTokenPattern matches the phase tokens printed by workloads
	DefaultTokenPattern = measurement.DefaultTokenPattern
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"

	HostSysFSFlag  = "host.sysfs"
	HostProcFSFlag = "host.procfs"

	RaplPathFlag    = "rapl.path"
	RaplSocketsFlag = "rapl.sockets"
	RaplPollingFlag = "rapl.polling"

	OutputFormatFlag  = "output.format"
	OutputFileFlag    = "output.file"
	OutputNoColorFlag = "output.no-color"
	jsonFlag          = "json"
	csvFlag           = "csv"

	// NOTE: not a flag
	OutputPrometheusDebugCollectors = "output.prometheus.debug-collectors"

	// profiling subcommand flags
	IterationsFlag   = "iterations"
	TokenPatternFlag = "token-pattern"
	OutputFileShort  = "output-file"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Host: Host{
			SysFS:  "/sys",
			ProcFS: "/proc",
		},
		Rapl: Rapl{
			Sockets: nil,
		},
		Profile: Profile{
			Iterations:   1,
			TokenPattern: DefaultTokenPattern,
		},
		Output: Output{
			Format:  TerminalFormat,
			NoColor: ptr.To(false),
			Prometheus: PrometheusOutput{
				DebugCollectors: []string{},
			},
		},
	}
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(SkipHostValidation); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		// read only; a close error can't lose data
		_ = file.Close()
	}()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}
		trackFlags(ctx, flagsSet)
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")
	// host
	hostSysFS := app.Flag(HostSysFSFlag, "Host sysfs path").Default("/sys").String()
	hostProcFS := app.Flag(HostProcFSFlag, "Host procfs path").Default("/proc").String()

	// rapl
	raplPath := app.Flag(RaplPathFlag,
		fmt.Sprintf("Powercap root of the RAPL counters; defaults to $%s, then {host.sysfs}/%s", RaplPathEnv, device.DefaultRaplPath)).
		String()
	raplSockets := app.Flag(RaplSocketsFlag, "Comma separated sockets to measure (e.g. 0 or 0,1); all when unset").String()
	raplPolling := app.Flag(RaplPollingFlag, "Interval in seconds between periodic counter samples; 0 to disable").Default("0").Float()

	// output
	outputFormat := app.Flag(OutputFormatFlag, "Output format: terminal, json, csv or prometheus").
		Default(TerminalFormat).Enum(TerminalFormat, JSONFormat, CSVFormat, PrometheusFormat)
	outputFile := app.Flag(OutputFileFlag, "Output file for json, csv and prometheus formats; data<TIMESTAMP>.<ext> when unset").
		String()
	noColor := app.Flag(OutputNoColorFlag, "Disable colors in terminal output").Default("false").Bool()
	jsonOutput := app.Flag(jsonFlag, "Shorthand for --output.format=json").Bool()
	csvOutput := app.Flag(csvFlag, "Shorthand for --output.format=csv").Bool()

	return func(cfg *Config) error {
		// Logging settings
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}

		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[HostSysFSFlag] {
			cfg.Host.SysFS = *hostSysFS
		}

		if flagsSet[HostProcFSFlag] {
			cfg.Host.ProcFS = *hostProcFS
		}

		// rapl settings
		if flagsSet[RaplPathFlag] {
			cfg.Rapl.Path = *raplPath
		}

		if flagsSet[RaplSocketsFlag] {
			sockets, err := ParseSockets(*raplSockets)
			if err != nil {
				return err
			}
			cfg.Rapl.Sockets = sockets
		}

		if flagsSet[RaplPollingFlag] {
			cfg.Rapl.Polling = time.Duration(*raplPolling * float64(time.Second))
		}

		// output settings
		if flagsSet[OutputFormatFlag] {
			cfg.Output.Format = *outputFormat
		}

		if flagsSet[jsonFlag] && flagsSet[csvFlag] {
			return fmt.Errorf("--%s and --%s are mutually exclusive", jsonFlag, csvFlag)
		}
		if flagsSet[jsonFlag] && *jsonOutput {
			cfg.Output.Format = JSONFormat
		}
		if flagsSet[csvFlag] && *csvOutput {
			cfg.Output.Format = CSVFormat
		}

		if flagsSet[OutputFileFlag] {
			cfg.Output.File = *outputFile
		}

		if flagsSet[OutputNoColorFlag] {
			cfg.Output.NoColor = noColor
		}

		cfg.sanitize()
		return cfg.Validate(SkipHostValidation)
	}
}

// RegisterProfileFlags registers the flags of a profiling subcommand. The
// returned ConfigUpdaterFn only applies them when cmd was selected.
func RegisterProfileFlags(cmd *kingpin.CmdClause, withTokens bool) ConfigUpdaterFn {
	flagsSet := map[string]bool{}

	cmd.PreAction(func(ctx *kingpin.ParseContext) error {
		flagsSet = map[string]bool{}
		trackFlags(ctx, flagsSet)
		return nil
	})

	iterations := cmd.Flag(IterationsFlag, "Number of iterations (>= 1)").Short('n').Default("1").Int()
	workloadOutput := cmd.Flag(OutputFileShort, "Redirect the standard output of the workload to this file").Short('o').String()

	var tokenPattern *string
	if withTokens {
		tokenPattern = cmd.Flag(TokenPatternFlag,
			"Regular expression matching phase tokens in the workload output; the first capture group names the token when present").
			Default(DefaultTokenPattern).PlaceHolder("REGEX").String()
	}

	return func(cfg *Config) error {
		if flagsSet[IterationsFlag] {
			cfg.Profile.Iterations = *iterations
		}

		if flagsSet[OutputFileShort] {
			cfg.Profile.OutputFile = *workloadOutput
		}

		if tokenPattern != nil && flagsSet[TokenPatternFlag] {
			cfg.Profile.TokenPattern = *tokenPattern
		}

		cfg.sanitize()
		return cfg.Validate(SkipHostValidation)
	}
}

func trackFlags(ctx *kingpin.ParseContext, flagsSet map[string]bool) {
	for _, element := range ctx.Elements {
		if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
			flagsSet[flag.Model().Name] = true
		}
	}
}

// ParseSockets parses a comma separated list of socket indices
func ParseSockets(s string) ([]int, error) {
	var sockets []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		socket, err := strconv.Atoi(field)
		if err != nil || socket < 0 {
			return nil, fmt.Errorf("invalid socket %q in %q", field, s)
		}
		sockets = append(sockets, socket)
	}
	return sockets, nil
}

// ResolveRaplPath returns the powercap root to discover RAPL domains in: the
// configured path, else the path set in the environment, else the default
// location below the sysfs mount point
func ResolveRaplPath(cfg *Config, getenv func(string) string) string {
	if cfg.Rapl.Path != "" {
		return cfg.Rapl.Path
	}
	if path := strings.TrimSpace(getenv(RaplPathEnv)); path != "" {
		return path
	}
	return filepath.Join(cfg.Host.SysFS, device.DefaultRaplPath)
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Host.SysFS = strings.TrimSpace(c.Host.SysFS)
	c.Host.ProcFS = strings.TrimSpace(c.Host.ProcFS)
	c.Rapl.Path = strings.TrimSpace(c.Rapl.Path)
	c.Profile.OutputFile = strings.TrimSpace(c.Profile.OutputFile)
	c.Output.Format = strings.TrimSpace(c.Output.Format)
	c.Output.File = strings.TrimSpace(c.Output.File)

	for i := range c.Output.Prometheus.DebugCollectors {
		c.Output.Prometheus.DebugCollectors[i] = strings.TrimSpace(c.Output.Prometheus.DebugCollectors[i])
	}
}

// Validate checks for configuration errors
func (c *Config) Validate(skips ...SkipValidation) error {
	validationSkipped := make(map[SkipValidation]bool, len(skips))
	for _, v := range skips {
		validationSkipped[v] = true
	}
	var errs []string
	{ // log level

		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}

		// Validate logging settings
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}

	{ // Validate host settings
		if _, skip := validationSkipped[SkipHostValidation]; !skip {
			if err := canReadDir(c.Host.SysFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid sysfs path: %s: %s ", c.Host.SysFS, err.Error()))
			}
			if err := canReadDir(c.Host.ProcFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid procfs path: %s: %s ", c.Host.ProcFS, err.Error()))
			}
		}
	}
	{ // Rapl
		for _, s := range c.Rapl.Sockets {
			if s < 0 {
				errs = append(errs, fmt.Sprintf("invalid socket: %d can't be negative", s))
			}
		}
		if c.Rapl.Polling < 0 {
			errs = append(errs, fmt.Sprintf("invalid rapl polling interval: %s can't be negative", c.Rapl.Polling))
		}
	}
	{ // Profile
		if c.Profile.Iterations < 1 {
			errs = append(errs, fmt.Sprintf("invalid iterations: %d must be at least 1", c.Profile.Iterations))
		}
		if _, err := regexp.Compile(c.Profile.TokenPattern); err != nil {
			errs = append(errs, fmt.Sprintf("invalid token pattern %q: %s", c.Profile.TokenPattern, err.Error()))
		}
	}
	{ // Output
		switch c.Output.Format {
		case TerminalFormat, JSONFormat, CSVFormat, PrometheusFormat:
		default:
			errs = append(errs, fmt.Sprintf("invalid output format: %s", c.Output.Format))
		}
		for _, name := range c.Output.Prometheus.DebugCollectors {
			if name != "go" && name != "process" {
				errs = append(errs, fmt.Sprintf("invalid prometheus debug collector: %s", name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func canReadDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()

	_, err = f.ReadDir(1)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE:  this code path should not happen but if it does (i.e if yaml marshal) fails
	// for some reason, manually build the string
	return c.manualString()
}

func (c *Config) manualString() string {
	sockets := make([]string, 0, len(c.Rapl.Sockets))
	for _, s := range c.Rapl.Sockets {
		sockets = append(sockets, strconv.Itoa(s))
	}

	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
		{HostSysFSFlag, c.Host.SysFS},
		{HostProcFSFlag, c.Host.ProcFS},
		{RaplPathFlag, c.Rapl.Path},
		{RaplSocketsFlag, strings.Join(sockets, ",")},
		{RaplPollingFlag, c.Rapl.Polling.String()},
		{IterationsFlag, strconv.Itoa(c.Profile.Iterations)},
		{TokenPatternFlag, c.Profile.TokenPattern},
		{OutputFileShort, c.Profile.OutputFile},
		{OutputFormatFlag, c.Output.Format},
		{OutputFileFlag, c.Output.File},
		{OutputNoColorFlag, fmt.Sprintf("%v", ptr.Deref(c.Output.NoColor, false))},
		{OutputPrometheusDebugCollectors, strings.Join(c.Output.Prometheus.DebugCollectors, ", ")},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
