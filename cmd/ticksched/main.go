package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mlfq/internal/job"
	"mlfq/internal/kernel"
	"mlfq/internal/metrics"
	"mlfq/internal/sched"
)

type runFlags struct {
	config      string
	workload    string
	csv         string
	metricsAddr string
	logLevel    string
	trace       bool
	printQueues bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ticksched",
		Short: "multi-level feedback queue scheduler on a simulated uniprocessor",
		Example: `  $ ticksched run --workload workload.yml --trace
  $ ticksched run --config config.yml --workload workload.yml --csv trace.csv`,
		SilenceUsage: true,
	}
	root.AddCommand(runCmd(), configCmd())
	return root
}

func runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a workload to completion and print a per-thread report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "config.yml", "scheduler config file (missing file = defaults)")
	fl.StringVarP(&f.workload, "workload", "w", "workload.yml", "workload file")
	fl.StringVar(&f.csv, "csv", "", "write every scheduler event to this CSV file")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fl.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	fl.BoolVar(&f.trace, "trace", false, "print every scheduler event")
	fl.BoolVar(&f.printQueues, "print-queues", false, "print the ready queues before the run starts")
	return cmd
}

func configCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective scheduler config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sched.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", cfg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "config.yml", "scheduler config file")
	return cmd
}

func run(ctx context.Context, out io.Writer, f runFlags) error {
	log, err := newLogger(f.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := sched.Load(f.config)
	if err != nil {
		return err
	}
	wl, err := job.LoadWorkload(f.workload)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	k := kernel.New(cfg, log)
	k.AddListener(sched.LogListener(log.Named("trace")))
	if f.trace {
		k.AddListener(sched.NewTracePrinter(out))
	}
	if f.csv != "" {
		rec, err := sched.NewCSVRecorder(f.csv, k.RunID())
		if err != nil {
			return err
		}
		k.AddListener(rec)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Warn("failed to write trace", zap.String("path", f.csv), zap.Error(err))
			}
		}()
	}
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		k.AddListener(metrics.New(reg))
		srv := &http.Server{Addr: f.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	log.Info("loaded config",
		zap.Int64("timer_ticks", cfg.TimerTicks),
		zap.Int64("aging_threshold", cfg.AgingThreshold),
		zap.Int("aging_boost", cfg.AgingBoost),
		zap.Int64("slice_ticks", cfg.SliceTicks),
		zap.Float64("alpha", cfg.Alpha),
	)
	for _, ts := range wl.Threads {
		k.Fork(ts)
	}
	if f.printQueues {
		k.PrintReadyQueues(out)
	}

	report, err := k.Run(ctx)
	report.Print(out)
	if errors.Is(err, context.Canceled) {
		log.Warn("run interrupted")
		return nil
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
