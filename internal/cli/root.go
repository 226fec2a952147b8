// Package cli implements the ledgerctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/R3E-Network/hiero_client/internal/audit"
	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/config"
	"github.com/R3E-Network/hiero_client/internal/metrics"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// app carries what PersistentPreRunE builds for the subcommands.
type app struct {
	opts   *RootOptions
	cfg    config.Config
	log    *logger.Logger
	client *chain.Client
	audit  *audit.AuditLogger
	repo   *audit.SQLRepository

	metrics       *metrics.Collector
	metricsServer *http.Server
}

// NewRootCommand creates the ledgerctl root command.
func NewRootCommand() *cobra.Command {
	a := &app{opts: &RootOptions{}}

	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Submit transactions to and stream topics from a ledger network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" {
				return nil
			}
			return a.setup(commandContext(cmd))
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(commandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVarP(&a.opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.opts.LogLevel, "log-level", "", "override logging.level")
	cmd.PersistentFlags().StringVar(&a.opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSubmitMessageCommand(a))
	cmd.AddCommand(newSubscribeCommand(a))
	cmd.AddCommand(newReceiptCommand(a))
	cmd.AddCommand(newTransferCommand(a))
	cmd.AddCommand(newSimCommand(a))
	cmd.AddCommand(newAuditCommand(a))
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func (a *app) setup(ctx context.Context) error {
	if !isValidFormat(a.opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", a.opts.Format, ValidFormats)
	}
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	if a.opts.LogLevel != "" {
		cfg.Logging.Level = a.opts.LogLevel
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Logging)

	var clientOpts []chain.ClientOption
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewCollector(cfg.Metrics.Namespace)
		clientOpts = append(clientOpts, chain.WithMetrics(a.metrics))
		if cfg.Metrics.ListenAddr != "" {
			lis, err := net.Listen("tcp", cfg.Metrics.ListenAddr)
			if err != nil {
				a.log.WithError(err).WithField("addr", cfg.Metrics.ListenAddr).Warn("metrics endpoint unavailable")
			} else {
				a.serveMetrics(lis)
			}
		}
	}
	client, err := chain.NewClientFromConfig(cfg, clientOpts...)
	if err != nil {
		return err
	}

	if cfg.Audit.Enabled {
		repo, err := audit.Open(ctx, cfg.Audit.DSN, "")
		if err != nil {
			client.Close()
			return fmt.Errorf("open audit store: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			client.Close()
			return err
		}
		a.repo = repo
		a.audit = audit.NewAuditLogger(repo, cfg.Audit.QueueSize, 0, a.log)
		a.audit.Start()
		client = client.With(chain.WithOnRequest(a.audit.Hook()))
	}
	a.client = client
	return nil
}

// serveMetrics exposes the collector at /metrics on lis until teardown.
func (a *app) serveMetrics(lis net.Listener) {
	r := mux.NewRouter()
	r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	a.metricsServer = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := a.metricsServer
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Warn("metrics endpoint stopped")
		}
	}()
	a.log.WithField("addr", lis.Addr().String()).Debug("serving metrics")
}

func (a *app) teardown(ctx context.Context) error {
	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("metrics endpoint shutdown")
		}
		cancel()
		a.metricsServer = nil
	}
	if a.audit != nil {
		if err := a.audit.Stop(ctx); err != nil {
			a.log.WithError(err).Warn("audit queue not flushed")
		}
		if dropped := a.audit.Dropped(); dropped > 0 {
			a.log.WithField("dropped", dropped).Warn("audit events dropped")
		}
		a.repo.Close()
	}
	if a.client != nil {
		// Closing the root releases every channel.
		root := a.client.Context()
		for root.Parent() != nil {
			root = root.Parent()
		}
		return root.Close()
	}
	return nil
}

// emit writes v as JSON, or text as-is in text mode.
func (a *app) emit(w io.Writer, v interface{}, text string) error {
	if a.opts.Format == "json" {
		enc := json.NewEncoder(w)
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
