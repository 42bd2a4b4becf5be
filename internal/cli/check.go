package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var checkTimeout time.Duration

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured services are reachable",
	Long: `Check probes the language model provider and the Telegram Bot API with the
current configuration and reports which ones answer.

Example:
  findorigin check
  OPENAI_BASE_URL=https://openrouter.ai/api/v1 findorigin check`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 20*time.Second, "timeout for all probes")
}

type probe struct {
	name   string
	detail string
	err    error
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	probes := []probe{
		{name: "Telegram Bot API"},
		{name: "Language model"},
	}

	// Probes are independent and only report, so the group never fails
	var g errgroup.Group
	g.Go(func() error {
		me, err := a.telegram.GetMe(ctx)
		if err != nil {
			probes[0].err = err
			return nil
		}
		probes[0].detail = "@" + me.Username
		return nil
	})
	g.Go(func() error {
		if a.analyzer == nil {
			probes[1].detail = "skipped (facts mode)"
			return nil
		}
		provider, err := a.analyzer.Provider()
		if err != nil {
			probes[1].err = err
			return nil
		}
		if !provider.IsAvailable(ctx) {
			probes[1].err = fmt.Errorf("%s did not answer", provider.Name())
			return nil
		}
		probes[1].detail = describeMode(a.cfg)
		return nil
	})
	_ = g.Wait()

	failed := printProbes(cmd.OutOrStdout(), probes)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printProbes(w io.Writer, probes []probe) int {
	failed := 0
	for _, p := range probes {
		if p.err != nil {
			failed++
			fmt.Fprintf(w, "✗ %-18s %v\n", p.name, p.err)
			continue
		}
		fmt.Fprintf(w, "✓ %-18s %s\n", p.name, p.detail)
	}
	return failed
}
