package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/pmidfetch/bootstrap"
	"github.com/kbukum/pmidfetch/fetch"
	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/observability"
	"github.com/kbukum/pmidfetch/pubmed"
	"github.com/kbukum/pmidfetch/server"
	"github.com/kbukum/pmidfetch/version"
)

var runFlags struct {
	input           string
	output          string
	rate            float64
	tick            time.Duration
	quiescenceTicks int
	completion      string
	method          string
	apiKey          string
	status          bool
	statusPort      int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Look up every title in the dataset and write the result document",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.input, "input", "i", "", "XML dataset to read titles from")
	f.StringVarP(&runFlags.output, "output", "o", "", "result document path")
	f.Float64Var(&runFlags.rate, "rate", fetch.DefaultRate, "lookups per second, must be positive")
	f.DurationVar(&runFlags.tick, "tick", 0, "stage hand-off period")
	f.IntVar(&runFlags.quiescenceTicks, "quiescence-ticks", 0, "idle ticks that complete the run")
	f.StringVar(&runFlags.completion, "completion", "", `completion mode: "quiescence" or "eos"`)
	f.StringVar(&runFlags.method, "method", "", "esearch HTTP method: GET or POST")
	f.StringVar(&runFlags.apiKey, "api-key", "", "NCBI API key")
	f.BoolVar(&runFlags.status, "status", false, "serve /healthz and /progress while running")
	f.IntVar(&runFlags.statusPort, "status-port", 0, "status server port")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	logger.RegisterDefaults("fetch", "pubmed")

	progress := fetch.NewProgress()
	telemetry := observability.NewTelemetry(cfg.Telemetry, cfg.Name, cfg.Version, cfg.Environment)
	if err := app.RegisterComponent(telemetry); err != nil {
		return err
	}
	if cfg.Status.Enabled {
		srv := server.New(cfg.Status, app.Logger)
		srv.RegisterEndpoints(cfg.Name, app.Components.HealthAll, progress.Snapshot)
		if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
			return err
		}
	}

	var report fetch.Report
	err = app.RunTask(cmd.Context(), func(ctx context.Context) error {
		var runErr error
		report, runErr = runPipeline(ctx, cfg, progress)
		return runErr
	})

	out := cmd.OutOrStdout()
	if report.RunID != "" {
		fmt.Fprintln(out, report.String())
		fmt.Fprintf(out, "Elapsed: %.3f s\n", report.Elapsed.Seconds())
	}
	if err != nil {
		return err
	}
	if report.SourceErr != nil {
		app.Logger.Warn("dataset was not read to the end", logger.ErrorFields("source", report.SourceErr))
	}
	return nil
}

// runPipeline builds the collaborators from cfg and runs one Supervisor.
func runPipeline(ctx context.Context, cfg *appConfig, progress *fetch.Progress) (fetch.Report, error) {
	source, err := pubmed.OpenTitles(cfg.Source)
	if err != nil {
		return fetch.Report{}, err
	}
	defer source.Close()

	esearch, err := pubmed.NewESearch(cfg.Lookup)
	if err != nil {
		return fetch.Report{}, err
	}
	metrics, err := observability.NewPipelineMetrics(nil)
	if err != nil {
		return fetch.Report{}, err
	}

	sup, err := fetch.NewSupervisor(cfg.Config,
		source,
		observability.TraceLookup(esearch, nil),
		pubmed.PMIDSelector(),
		pubmed.NewXMLSink(cfg.Sink),
		fetch.WithObserver(progress),
		fetch.WithObserver(metrics),
	)
	if err != nil {
		return fetch.Report{}, err
	}
	return sup.Run(ctx)
}
