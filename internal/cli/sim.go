package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/httputil"
	"github.com/R3E-Network/hiero_client/internal/simnet"
)

// DefaultAdminURL is where ledger-sim serves its admin API by default.
const DefaultAdminURL = "http://127.0.0.1:8080"

type genesisResult struct {
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
}

func newSimCommand(a *app) *cobra.Command {
	var adminURL string

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Administer a running ledger-sim network",
	}
	cmd.PersistentFlags().StringVar(&adminURL, "admin-url", "", "admin API base URL (defaults to network.admin_url)")

	admin := func() *httputil.Client {
		url := adminURL
		if url == "" {
			url = a.cfg.Network.AdminURL
		}
		if url == "" {
			url = DefaultAdminURL
		}
		return httputil.NewClient(httputil.ClientConfig{BaseURL: url})
	}

	cmd.AddCommand(newSimCreateAccountCommand(a, admin))
	cmd.AddCommand(newSimStatsCommand(a, admin))
	return cmd
}

func newSimCreateAccountCommand(a *app, admin func() *httputil.Client) *cobra.Command {
	var (
		publicKey string
		seed      string
		label     string
		balance   int64
	)

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create a funded account outside of consensus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.genesisKey(publicKey, seed, label)
			if err != nil {
				return err
			}
			return a.createGenesisAccount(commandContext(cmd), cmd.OutOrStdout(), admin(), key, balance)
		},
	}

	cmd.Flags().StringVar(&publicKey, "public-key", "", "hex ed25519 public key")
	cmd.Flags().StringVar(&seed, "seed", "", "derive the key from this seed (defaults to payer.seed)")
	cmd.Flags().StringVar(&label, "label", "", "derivation label used with --seed")
	cmd.Flags().Int64Var(&balance, "balance", 0, "initial balance")
	return cmd
}

func (a *app) genesisKey(publicKey, seed, label string) (string, error) {
	if publicKey != "" {
		if label != "" || seed != "" {
			return "", errors.New("use either --public-key or --seed/--label")
		}
		return publicKey, nil
	}
	if label == "" {
		return "", errors.New("one of --public-key or --label is required")
	}
	if seed == "" {
		seed = a.cfg.Payer.Seed
	}
	if seed == "" {
		return "", errors.New("--seed is required when payer.seed is not configured")
	}
	priv, err := chain.DeriveEd25519Key([]byte(seed), label)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(chain.Ed25519Signatory(priv).PublicKey().Key), nil
}

func (a *app) createGenesisAccount(ctx context.Context, out io.Writer, admin *httputil.Client, publicKey string, balance int64) error {
	var created struct {
		AccountID string `json:"account_id"`
	}
	req := simnet.CreateAccountRequest{PublicKey: publicKey, KeyType: "ed25519", Balance: balance}
	if err := admin.PostJSON(ctx, "/accounts", req, &created); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	a.log.WithContext(ctx).WithField("account", created.AccountID).Debug("genesis account created")

	res := genesisResult{AccountID: created.AccountID, PublicKey: publicKey}
	return a.emit(out, res, res.AccountID)
}

func newSimStatsCommand(a *app, admin func() *httputil.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts of the simulated network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats simnet.Stats
			if err := admin().GetJSON(commandContext(cmd), "/stats", &stats); err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			text := fmt.Sprintf("accounts=%d topics=%d schedules=%d messages=%d transactions=%d",
				stats.Accounts, stats.Topics, stats.Schedules, stats.Messages, stats.Transactions)
			return a.emit(cmd.OutOrStdout(), stats, text)
		},
	}
}
