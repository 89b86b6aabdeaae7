package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestOpErrorCarriesCodeAndDetails(t *testing.T) {
	err := Errf(CodePathEscape, "path %s escapes", "../x").WithDetail("path", "../x")

	if err.Code != CodePathEscape {
		t.Errorf("code = %q, want %q", err.Code, CodePathEscape)
	}
	if !strings.Contains(err.Error(), CodePathEscape) {
		t.Errorf("rendered error should mention the code: %q", err.Error())
	}
	if err.Details["path"] != "../x" {
		t.Errorf("detail not recorded: %+v", err.Details)
	}
}

func TestWrapErrPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := WrapErr(CodeFileRead, cause)

	if !strings.Contains(err.Error(), "underlying failure") {
		t.Errorf("wrapped error lost its cause: %q", err.Error())
	}

	var op *OpError
	if !errors.As(error(err), &op) {
		t.Error("WrapErr result should satisfy errors.As for *OpError")
	}
}

func TestCollectorNeverFailsTheOperation(t *testing.T) {
	c := NewErrorCollector()

	if c.HasErrors() {
		t.Error("fresh collector should be empty")
	}

	c.Addf(CodeParseFailure, "bad file %d", 1)
	c.Addf(CodeParseFailure, "bad file %d", 2)
	c.Warn("minor issue %d", 1)

	if !c.HasErrors() {
		t.Error("collector should report errors")
	}
	if got := len(c.Errors()); got != 2 {
		t.Errorf("errors = %d, want 2", got)
	}
	if got := len(c.Warnings()); got != 1 {
		t.Errorf("warnings = %d, want 1", got)
	}
}

func TestCollectorSampleBounds(t *testing.T) {
	c := NewErrorCollector()
	for i := 0; i < 50; i++ {
		c.Addf(CodeFileRead, "file %d", i)
	}

	if got := len(c.Sample(25)); got != 25 {
		t.Errorf("sample = %d, want 25", got)
	}
	if got := len(c.Errors()); got != 50 {
		t.Errorf("full list = %d, want 50", got)
	}
}

func TestCollectorConcurrentAdds(t *testing.T) {
	c := NewErrorCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Addf(CodeFileRead, "worker %d item %d", n, j)
			}
		}(i)
	}
	wg.Wait()

	if got := len(c.Errors()); got != 800 {
		t.Errorf("errors = %d, want 800", got)
	}
}
