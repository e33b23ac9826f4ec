package main

import (
	"encoding/hex"
	"fmt"

	"github.com/jmerrifield20/powchain/internal/wallet"
	"github.com/spf13/cobra"
)

var signKey string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a secp256k1 key pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.New()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "private_key: %s\n", w.PrivateKeyHex())
		fmt.Fprintf(out, "public_key:  %s\n", w.PublicKeyHex())
		return nil
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with a hex private key",
	Long: `Sign prints the hex DER ECDSA signature over SHA-256(message). Signatures
are not checked by the ledger; they let a recipient attribute a transaction.

  powchain sign --key <hex> "Alice sends 5 BTC to Bob"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.FromHex(signKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(w.Sign([]byte(args[0]))))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signKey, "key", "", "hex-encoded private key")
	_ = signCmd.MarkFlagRequired("key")
}
