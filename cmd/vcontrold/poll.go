package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/zberg/go-vcontrold/pkg/catalog"
	"github.com/zberg/go-vcontrold/pkg/metrics"
	"github.com/zberg/go-vcontrold/pkg/publish"
	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

func init() {
	f := pollCmd.Flags()
	f.String("schedule", "@every 5m", "cron schedule of batch runs")
	f.String("metrics-addr", ":9102", "listen address for /metrics, empty disables the endpoint")
	f.String("mqtt-broker", "", "MQTT broker URL like tcp://localhost:1883, empty disables publishing")
	f.String("mqtt-client-id", "", "MQTT client ID (default: random)")
	f.String("mqtt-username", "", "MQTT user name")
	f.String("mqtt-password", "", "MQTT password")
	f.String("mqtt-topic-prefix", "vcontrold", "MQTT topic prefix")
	f.StringSliceP("group", "g", nil, "only read commands of these groups")
	f.Int("max-values", 0, "stop each run after this many commands, 0 reads all")
	f.Bool("run-now", true, "run a batch right after start")

	for key, flag := range map[string]string{
		"schedule":          "schedule",
		"metrics-addr":      "metrics-addr",
		"mqtt.broker":       "mqtt-broker",
		"mqtt.client-id":    "mqtt-client-id",
		"mqtt.username":     "mqtt-username",
		"mqtt.password":     "mqtt-password",
		"mqtt.topic-prefix": "mqtt-topic-prefix",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(pollCmd)
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Read the heating control on a schedule",
	Long: `Run batches on a cron schedule. Every report is published to MQTT when a
broker is configured, and readings are exported on /metrics for Prometheus.
Runs that are still in progress when the next one is due are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.requireHost(); err != nil {
			return err
		}
		groups, _ := cmd.Flags().GetStringSlice("group")
		maxValues, _ := cmd.Flags().GetInt("max-values")
		runNow, _ := cmd.Flags().GetBool("run-now")
		ctx := cmd.Context()

		cat, err := openCatalog()
		if err != nil {
			return err
		}

		p := &poller{
			settings:  cfg,
			catalog:   cat,
			recorder:  metrics.NewRecorder(),
			groups:    groups,
			maxValues: maxValues,
			logger:    cfg.Logger,
		}

		if cfg.MQTT.Broker != "" {
			pub := publish.New(cfg.MQTT, cfg.Logger)
			if err := pub.Connect(ctx); err != nil {
				return err
			}
			defer pub.Close()
			p.publisher = pub
		}

		if cfg.MetricsAddr != "" {
			srv := metricsServer(cfg.MetricsAddr, p.recorder)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					cfg.Logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		c, job, err := p.schedule(ctx, cfg.Schedule)
		if err != nil {
			return err
		}
		c.Start()
		cfg.Logger.Info("polling started", "schedule", cfg.Schedule, "host", cfg.Host)

		if runNow {
			job.Run()
		}

		<-ctx.Done()
		cfg.Logger.Info("polling stopped, waiting for the running batch")
		<-c.Stop().Done()
		return nil
	},
}

// reportPublisher is the part of publish.Publisher the poller uses.
type reportPublisher interface {
	PublishDevice(ctx context.Context, id vcontrold.DeviceIdentity) error
	PublishReport(ctx context.Context, rec vcontrold.Record) error
}

// poller runs one batch per tick on a fresh connection.
type poller struct {
	settings  settings
	catalog   *catalog.File
	recorder  *metrics.Recorder
	publisher reportPublisher
	groups    []string
	maxValues int
	logger    *slog.Logger
}

// schedule registers the batch job. The returned job is the one cron runs,
// so calling it directly still skips while a scheduled run is in progress.
func (p *poller) schedule(ctx context.Context, expr string) (*cron.Cron, cron.Job, error) {
	logger := cronLogger{p.logger}
	c := cron.New(cron.WithLogger(logger))
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { p.runLogged(ctx) }))
	if _, err := c.AddJob(expr, job); err != nil {
		return nil, nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return c, job, nil
}

func (p *poller) runLogged(ctx context.Context) {
	if err := p.run(ctx); err != nil {
		p.logger.Error("batch failed", "error", err)
	}
}

// run connects, executes one batch and hands the report to the metrics
// recorder and the publisher.
func (p *poller) run(ctx context.Context) error {
	client, err := vcontrold.NewClient(ctx, p.settings.Host, p.catalog, p.settings.clientOptions()...)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", p.settings.Host, err)
	}
	defer client.Close()

	if id, ok := client.Identity(); ok {
		p.recorder.SetDevice(id)
		if p.publisher != nil {
			if err := p.publisher.PublishDevice(ctx, id); err != nil {
				p.logger.Warn("failed to publish device identity", "error", err)
			}
		}
	}

	if err := applyGroups(client, p.groups); err != nil {
		return err
	}
	report, runErr := client.Run(ctx, vcontrold.BatchOptions{MaxValues: p.maxValues})
	p.recorder.ObserveReport(report)

	if err := p.catalog.Save(); err != nil {
		p.logger.Error("failed to save catalog", "path", p.catalog.Path(), "error", err)
	}
	if p.publisher != nil {
		if err := p.publisher.PublishReport(ctx, report.Record()); err != nil {
			p.logger.Warn("failed to publish report", "error", err)
		}
	}
	return runErr
}

func metricsServer(addr string, recorder *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", recorder.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// cronLogger routes cron's logging into slog. Scheduler chatter goes to
// debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
