package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/findorigin/internal/pipeline"
	"github.com/ppiankov/findorigin/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many messages from a file in parallel",
	Long: `Batch analyzes one input per line concurrently:
- Blank lines and lines starting with # are skipped
- Repeated lines are analyzed once
- One JSON object per input is written, in input order

Example:
  findorigin batch posts.txt
  findorigin batch posts.txt --concurrency 8 --output results.jsonl
  findorigin batch posts.txt --facts-only`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default concurrency.workers)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write JSON lines to this file instead of stdout")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Bool("facts-only", false, "reply with extracted facts, skip the language model")
	batchCmd.Flags().Bool("search", false, "enable Google search (needs GOOGLE_API_KEY and GOOGLE_CX)")
}

// batchLine is one line of batch output
type batchLine struct {
	Index  int              `json:"index"`
	Input  string           `json:"input"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]
	if err := applyCommonFlags(cmd); err != nil {
		return err
	}
	if concurrency > 0 {
		viper.Set("concurrency.workers", concurrency)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	workers := a.cfg.Concurrency.Workers
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", describeMode(a.cfg))
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	var out io.Writer = cmd.OutOrStdout()
	if batchOutput != "" {
		f, createErr := os.Create(batchOutput)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		out = f
	}

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	failures, err := writeBatchResults(out, results)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(results)-failures)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	if batchOutput != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutput)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeBatchResults writes one JSON line per result and returns the number
// of failed inputs
func writeBatchResults(w io.Writer, results []*worker.AnalyzeResult) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	failures := 0
	for _, r := range results {
		line := batchLine{Index: r.Index, Input: r.Input, Result: r.Result}
		if r.Error != nil {
			failures++
			line.Error = r.Error.Error()
			line.Result = nil
		}
		if err := enc.Encode(line); err != nil {
			return failures, fmt.Errorf("write result: %w", err)
		}
	}
	return failures, nil
}
