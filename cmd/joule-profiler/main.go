// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sustainable-computing-io/joule-profiler/config"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/csv"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/json"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/prometheus"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/stdout"
	"github.com/sustainable-computing-io/joule-profiler/internal/logger"
	"github.com/sustainable-computing-io/joule-profiler/internal/profiler"
	"github.com/sustainable-computing-io/joule-profiler/internal/service"
	"github.com/sustainable-computing-io/joule-profiler/internal/version"
	"k8s.io/utils/ptr"
)

func main() {
	inv, err := parseArgsAndConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "joule-profiler: error: %v\n", err)
		os.Exit(2)
	}

	logger := logger.New(inv.cfg.Log.Level, inv.cfg.Log.Format, os.Stderr)
	logVersionInfo(logger)
	logger.Debug("Configuration", "config", inv.cfg.String())

	if err := run(context.Background(), logger, inv); err != nil {
		logger.Error("joule-profiler terminated with an error", "error", err)
		os.Exit(1)
	}
}

// invocation is a parsed command line
type invocation struct {
	command profiler.Command
	args    []string
	cfg     *config.Config
}

func parseArgsAndConfig(argv []string) (*invocation, error) {
	const appName = "joule-profiler"
	app := kingpin.New(appName, "Measure the energy a command consumes with the RAPL counters of the host.")
	app.Version(version.Info().String())
	app.HelpFlag.Short('h')

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)

	simple := app.Command(string(profiler.Simple), "Measure a command as a single window. Example: simple -- ./bench.sh")
	updateSimple := config.RegisterProfileFlags(simple, false)
	simpleArgs := simple.Arg("command", "Command to profile, given after --").Required().Strings()

	phases := app.Command(string(profiler.Phases),
		"Measure a command split into phases at the tokens it prints. Example: phases -- ./bench.sh")
	updatePhases := config.RegisterProfileFlags(phases, true)
	phasesArgs := phases.Arg("command", "Command to profile, given after --").Required().Strings()

	app.Command(string(profiler.ListSensors), "List the available energy sensors")

	selected, err := app.Parse(argv)
	if err != nil {
		return nil, err
	}

	cfg, err := (&config.Builder{}).MergeFile(*configFile).Build()
	if err != nil {
		return nil, err
	}

	// command line flags override config file settings
	if err := updateConfig(cfg); err != nil {
		return nil, err
	}

	inv := &invocation{command: profiler.Command(selected), cfg: cfg}
	switch inv.command {
	case profiler.Simple:
		inv.args = *simpleArgs
		err = updateSimple(cfg)
	case profiler.Phases:
		inv.args = *phasesArgs
		err = updatePhases(cfg)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func logVersionInfo(logger *slog.Logger) {
	v := version.Info()
	logger.Debug("joule-profiler version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func run(ctx context.Context, logger *slog.Logger, inv *invocation) error {
	exp := createExporter(logger, inv.cfg)
	p := profiler.NewProfiler(inv.command, exp, profilerOptions(logger, inv)...)
	signals := service.NewSignalHandler(logger, os.Interrupt, syscall.SIGTERM)

	services := []service.Service{p, exp, signals}
	if err := service.Init(logger, services); err != nil {
		return err
	}

	runErr := service.Run(ctx, logger, []service.Service{signals, p})
	if err := service.Shutdown(logger, services); err != nil {
		logger.Warn("failed to shutdown services", "error", err)
	}
	return runErr
}

func profilerOptions(logger *slog.Logger, inv *invocation) []profiler.OptionFn {
	cfg := inv.cfg
	return []profiler.OptionFn{
		profiler.WithLogger(logger),
		profiler.WithRaplPath(config.ResolveRaplPath(cfg, os.Getenv)),
		profiler.WithSockets(cfg.Rapl.Sockets),
		profiler.WithPollingInterval(cfg.Rapl.Polling),
		profiler.WithProcFSPath(cfg.Host.ProcFS),
		profiler.WithIterations(cfg.Profile.Iterations),
		profiler.WithTokenPattern(cfg.Profile.TokenPattern),
		profiler.WithCommand(inv.args),
		profiler.WithWorkloadOutput(cfg.Profile.OutputFile),
	}
}

func createExporter(logger *slog.Logger, cfg *config.Config) exporter.Exporter {
	fileOpts := []exporter.FileOptionFn{exporter.WithLogger(logger)}

	switch cfg.Output.Format {
	case config.JSONFormat:
		return json.NewExporter(cfg.Output.File, logger, fileOpts...)
	case config.CSVFormat:
		return csv.NewExporter(cfg.Output.File, logger, fileOpts...)
	case config.PrometheusFormat:
		return prometheus.NewExporter(cfg.Output.File,
			prometheus.WithLogger(logger),
			prometheus.WithDebugCollectors(cfg.Output.Prometheus.DebugCollectors),
			prometheus.WithFileOptions(fileOpts...),
		)
	default:
		return stdout.NewExporter(
			stdout.WithLogger(logger),
			stdout.WithColorScheme(stdout.SchemeFor(os.Stdout, ptr.Deref(cfg.Output.NoColor, false))),
		)
	}
}
