package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jmerrifield20/powchain/internal/chain"
	"github.com/jmerrifield20/powchain/pkg/client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var printFormat string

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print block indices and hashes",
	Long: `Print lists every block's index and hash.

Without --remote a fresh in-process chain is built, which holds only the
genesis block. With --remote the chain of a running node is fetched:

  powchain print --remote http://127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runPrint,
}

func init() {
	printCmd.Flags().String("remote", "", "base URL of a running node")
	printCmd.Flags().StringVar(&printFormat, "format", "table", "Output format: table, text or json")
}

func runPrint(cmd *cobra.Command, args []string) error {
	if err := bindRemote(cmd, false); err != nil {
		return err
	}

	var blocks []client.Block
	if cfg.Client.RemoteURL != "" {
		c, err := newClient()
		if err != nil {
			return err
		}
		blocks, err = c.Chain(context.Background())
		if err != nil {
			return fmt.Errorf("fetch chain: %w", err)
		}
	} else {
		blocks = localBlocks(chain.NewLedgerWithDifficulty(cfg.Chain.Difficulty))
	}
	return writeBlocks(cmd.OutOrStdout(), blocks, printFormat)
}

// localBlocks renders an in-process ledger in the same shape a remote node
// serves.
func localBlocks(l *chain.Ledger) []client.Block {
	src := l.Blocks()
	out := make([]client.Block, len(src))
	for i, b := range src {
		out[i] = client.Block{
			Index:        b.Index,
			Timestamp:    b.Timestamp,
			Data:         b.Data,
			PreviousHash: b.PreviousHash,
			Hash:         b.Hash,
			Nonce:        b.Nonce,
		}
	}
	return out
}

func writeBlocks(w io.Writer, blocks []client.Block, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(blocks)
	case "text":
		for _, b := range blocks {
			fmt.Fprintf(w, "Block %d: %s\n", b.Index, b.Hash)
		}
		return nil
	case "table":
		data := pterm.TableData{{"INDEX", "HASH", "NONCE", "DATA"}}
		for _, b := range blocks {
			data = append(data, []string{
				strconv.FormatUint(b.Index, 10),
				b.Hash,
				strconv.FormatUint(b.Nonce, 10),
				b.Data,
			})
		}
		out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return fmt.Errorf("render table: %w", err)
		}
		fmt.Fprintln(w, out)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, text or json)", format)
	}
}

func newClient() (*client.Client, error) {
	return client.New(cfg.Client.RemoteURL, client.WithTimeout(cfg.Client.Timeout))
}
