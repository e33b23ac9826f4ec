package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit <data>",
	Short: "Submit a transaction to a running node",
	Long: `Submit posts the given text to a node's /transaction endpoint and waits for
the block to be mined:

  powchain submit --remote http://127.0.0.1:8080 "Alice sends 5 BTC to Bob"`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the integrity of a running node's chain",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	submitCmd.Flags().String("remote", "", "base URL of a running node")
	verifyCmd.Flags().String("remote", "", "base URL of a running node")
}

// bindRemote resolves the node URL from the command's --remote flag, falling
// back to client.remote_url from config or CLIENT_REMOTE_URL.
func bindRemote(cmd *cobra.Command, required bool) error {
	if err := viper.BindPFlag("client.remote_url", cmd.Flags().Lookup("remote")); err != nil {
		return err
	}
	cfg.Client.RemoteURL = viper.GetString("client.remote_url")
	if required && cfg.Client.RemoteURL == "" {
		return errors.New("--remote (or client.remote_url) is required")
	}
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if err := bindRemote(cmd, true); err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	b, err := c.SubmitTransaction(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Block %d: %s (nonce %d)\n", b.Index, b.Hash, b.Nonce)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := bindRemote(cmd, true); err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	r, err := c.Verify(context.Background())
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "blocks:    %d\n", r.Length)
	fmt.Fprintf(out, "valid:     %t\n", r.Valid)
	fmt.Fprintf(out, "pow_valid: %t\n", r.PoWValid)
	for _, v := range r.Violations {
		fmt.Fprintf(out, "  position %d: %s\n", v.Position, v.Reason)
	}
	if !r.Valid {
		return errors.New("chain is invalid")
	}
	return nil
}
