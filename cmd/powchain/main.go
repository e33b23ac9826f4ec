package main

import (
	"fmt"
	"os"

	"github.com/jmerrifield20/powchain/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "powchain",
	Short: "Single-node proof-of-work ledger",
	Long: `powchain keeps an append-only chain of blocks, each mined so that its
SHA-256 hash starts with a fixed number of zero hex digits.

Run a node with 'powchain start' and submit transactions over HTTP, or
inspect a chain with 'powchain print'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper(), cfgFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./configs/powchain.yaml or ./powchain.yaml)")
	rootCmd.PersistentFlags().Int("difficulty", 4, "leading zero hex digits required of a mined hash")
	_ = viper.BindPFlag("chain.difficulty", rootCmd.PersistentFlags().Lookup("difficulty"))

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the powchain version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "powchain %s\n", version)
	},
}
