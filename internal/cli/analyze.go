package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/findorigin/internal/pipeline"
)

var (
	analyzeJSON    bool
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Analyze one message locally and print the bot reply",
	Long: `Analyze runs the same pipeline as the bot for one message and prints the
reply that would be sent to the chat. Without arguments the text is read from
stdin.

Example:
  findorigin analyze https://t.me/somechannel/42
  findorigin analyze "Министр заявил 12.03.2024, что ..." --json
  pbpaste | findorigin analyze --facts-only`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall timeout")
	analyzeCmd.Flags().Bool("facts-only", false, "reply with extracted facts, skip the language model")
	analyzeCmd.Flags().Bool("search", false, "enable Google search (needs GOOGLE_API_KEY and GOOGLE_CX)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := applyCommonFlags(cmd); err != nil {
		return err
	}

	text, err := inputText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Mode: %s\n\n", describeMode(a.cfg))
	}

	result, err := a.pipeline.Run(ctx, text)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return printResult(cmd.OutOrStdout(), result, analyzeJSON)
}

// inputText joins args, or reads stdin when there are none
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input: pass text as arguments or on stdin")
	}
	return text, nil
}

func printResult(w io.Writer, result *pipeline.Result, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, result.Reply)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
