package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/findorigin/internal/pipeline"
)

// Runner analyzes one input
type Runner interface {
	Run(ctx context.Context, raw string) (*pipeline.Result, error)
}

// AnalyzeJob analyzes one line of a batch
type AnalyzeJob struct {
	Index  int
	Input  string
	Runner Runner
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	result, err := j.Runner.Run(ctx, j.Input)
	return &AnalyzeResult{
		Index:  j.Index,
		Input:  j.Input,
		Result: result,
		Error:  err,
	}
}

// AnalyzeResult is the outcome of one batch line
type AnalyzeResult struct {
	Index  int
	Input  string
	Result *pipeline.Result
	Error  error
}

// GetError returns the error from the analysis
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many inputs concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessInputs analyzes inputs and returns results in input order
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*AnalyzeResult {
	if len(inputs) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, input := range inputs {
		if !pool.Submit(&AnalyzeJob{Index: i, Input: input, Runner: b.runner}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*AnalyzeResult, 0, len(results))
	for _, result := range results {
		out = append(out, result.(*AnalyzeResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

// ProcessFile reads inputs from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads one input per line, skipping blank lines, '#'
// comments and repeats
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
