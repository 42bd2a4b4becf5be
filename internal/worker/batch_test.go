package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/findorigin/internal/pipeline"
)

type mockRunner struct {
	calls atomic.Int32
}

func (m *mockRunner) Run(ctx context.Context, raw string) (*pipeline.Result, error) {
	m.calls.Add(1)
	if strings.Contains(raw, "fail") {
		return nil, errors.New("analysis failed")
	}
	return &pipeline.Result{Reply: "reply:" + raw}, nil
}

func TestBatchProcessor_ProcessInputs(t *testing.T) {
	runner := &mockRunner{}
	processor := NewBatchProcessor(runner, 3)

	inputs := []string{"one", "two", "fail three", "four", "five"}
	results := processor.ProcessInputs(context.Background(), inputs)

	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		if r.Index != i || r.Input != inputs[i] {
			t.Errorf("result %d out of order: %+v", i, r)
		}
		if strings.Contains(r.Input, "fail") {
			if r.GetError() == nil {
				t.Errorf("expected error for %q", r.Input)
			}
			continue
		}
		if r.GetError() != nil || r.Result.Reply != "reply:"+r.Input {
			t.Errorf("unexpected result for %q: %+v", r.Input, r)
		}
	}
	if runner.calls.Load() != int32(len(inputs)) {
		t.Errorf("expected %d runs, got %d", len(inputs), runner.calls.Load())
	}
}

func TestBatchProcessor_ProcessInputs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockRunner{}, 2)
	results := processor.ProcessInputs(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", results)
	}
}

func TestReadInputsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.txt")
	content := "# posts to check\nhttps://t.me/somechannel/42\n\n  Встреча состоялась 12.03.2024  \nhttps://t.me/somechannel/42\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := ReadInputsFromFile(path)
	if err != nil {
		t.Fatalf("ReadInputsFromFile: %v", err)
	}
	want := []string{"https://t.me/somechannel/42", "Встреча состоялась 12.03.2024"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.txt")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	results, err := NewBatchProcessor(&mockRunner{}, 2).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	_, err := NewBatchProcessor(&mockRunner{}, 2).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
