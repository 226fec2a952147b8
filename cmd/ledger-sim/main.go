// Command ledger-sim serves an in-process simulated ledger: gRPC gateways, a
// mirror stream and an admin HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/simnet"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

type options struct {
	host           string
	gateways       int
	basePort       int
	mirrorPort     int
	adminAddr      string
	seed           string
	seedLabel      string
	balance        int64
	receiptDelay   int
	transactionFee uint64
	logLevel       string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "ledger-sim",
		Short:        "Run a simulated ledger network for local development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "127.0.0.1", "interface the gateways and mirror bind to")
	f.IntVar(&opts.gateways, "gateways", 3, "number of gateway nodes")
	f.IntVar(&opts.basePort, "gateway-port", 50211, "port of the first gateway; others follow sequentially")
	f.IntVar(&opts.mirrorPort, "mirror-port", 5600, "mirror stream port")
	f.StringVar(&opts.adminAddr, "admin-addr", ":8080", "admin HTTP listen address")
	f.StringVar(&opts.seed, "operator-seed", "ledger-sim", "seed the operator key is derived from")
	f.StringVar(&opts.seedLabel, "operator-label", "operator", "derivation label of the operator key")
	f.Int64Var(&opts.balance, "operator-balance", 50_000_000_000_000, "initial operator balance")
	f.IntVar(&opts.receiptDelay, "receipt-delay", 0, "receipt polls answered as unknown before the receipt is final")
	f.Uint64Var(&opts.transactionFee, "fee", 0, "fee charged per transaction (0 uses the network default)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(opts options) error {
	if opts.gateways <= 0 {
		return errors.New("--gateways must be > 0")
	}
	log := logger.New(logger.LoggingConfig{Level: opts.logLevel, Format: "text", Output: "stdout"})

	netOpts := []simnet.Option{simnet.WithLogger(log), simnet.WithReceiptDelay(opts.receiptDelay)}
	if opts.transactionFee > 0 {
		netOpts = append(netOpts, simnet.WithTransactionFee(opts.transactionFee))
	}
	network := simnet.New(netOpts...)
	cluster := simnet.NewCluster(network, opts.gateways)

	gatewayListeners := make([]net.Listener, 0, opts.gateways)
	closeAll := func() {
		for _, lis := range gatewayListeners {
			_ = lis.Close()
		}
	}
	for i := 0; i < opts.gateways; i++ {
		lis, err := net.Listen("tcp", net.JoinHostPort(opts.host, strconv.Itoa(opts.basePort+i)))
		if err != nil {
			closeAll()
			return fmt.Errorf("listen gateway %d: %w", i, err)
		}
		gatewayListeners = append(gatewayListeners, lis)
	}
	mirrorListener, err := net.Listen("tcp", net.JoinHostPort(opts.host, strconv.Itoa(opts.mirrorPort)))
	if err != nil {
		closeAll()
		return fmt.Errorf("listen mirror: %w", err)
	}
	if err := cluster.Serve(gatewayListeners, mirrorListener); err != nil {
		closeAll()
		_ = mirrorListener.Close()
		return err
	}
	defer cluster.Close()

	priv, err := chain.DeriveEd25519Key([]byte(opts.seed), opts.seedLabel)
	if err != nil {
		return fmt.Errorf("derive operator key: %w", err)
	}
	operator := network.CreateAccount(chain.Ed25519Signatory(priv).PublicKey(), opts.balance)
	log.WithFields(map[string]interface{}{
		"operator":       operator.String(),
		"operator_seed":  opts.seed,
		"operator_label": opts.seedLabel,
		"gateways":       cluster.GatewayEndpoints,
		"mirror":         cluster.MirrorEndpoint,
	}).Info("simulated network ready")

	server := &http.Server{
		Addr:         opts.adminAddr,
		Handler:      simnet.NewAdminRouter(cluster, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", opts.adminAddr).Info("admin API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-serveErr:
		return fmt.Errorf("admin API: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("admin API shutdown")
	}
	return nil
}
