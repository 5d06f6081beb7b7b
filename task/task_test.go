package task_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

func TestRegistryInvoke(t *testing.T) {
	reg := task.NewRegistry()
	reg.Register("echo", func(_ context.Context, payload document.Document) (document.Document, error) {
		return document.Document{"echoed": payload["value"]}, nil
	})

	out, err := reg.Invoke(context.Background(), "echo", document.Document{"value": "hi"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out["echoed"] != "hi" {
		t.Errorf("echoed = %v", out["echoed"])
	}
}

func TestRegistryUnknownTask(t *testing.T) {
	reg := task.NewRegistry()

	_, err := reg.Invoke(context.Background(), "ghost", document.New())
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
	if got := task.ClassOf(err); got != task.ErrorClassNotRegistered {
		t.Errorf("class = %q, want %q", got, task.ErrorClassNotRegistered)
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want task.ErrorClass
	}{
		{"classified transient", task.Transientf("model overloaded"), task.ErrorClassTransient},
		{"classified custom", task.NewError("QuotaExceeded", "limit hit"), task.ErrorClass("QuotaExceeded")},
		{"wrapped classified", fmt.Errorf("invoke: %w", task.Failedf("boom")), task.ErrorClassTaskFailed},
		{"deadline", context.DeadlineExceeded, task.ErrorClassTimeout},
		{"plain error", errors.New("oops"), task.ErrorClassTaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := task.ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCauseOf(t *testing.T) {
	if got := task.CauseOf(task.Transientf("model overloaded")); got != "model overloaded" {
		t.Errorf("CauseOf = %q", got)
	}
	if got := task.CauseOf(errors.New("plain failure")); got != "plain failure" {
		t.Errorf("CauseOf = %q", got)
	}
}
