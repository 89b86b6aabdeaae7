package pipeline

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// OperationContext is the per-invocation environment threaded through one
// import/export call.  It owns a dedicated temp directory which Cleanup
// removes when the call returns.
type OperationContext struct {
	ID        string
	Format    string
	WorkDir   string
	TempDir   string
	StartedAt time.Time

	Logger *log.Logger

	// Progress events land here; nil means no callback.
	OnProgress ProgressFunc
	// Writer for mpb progress bars; nil disables bar rendering (tests,
	// machine-readable output).
	ProgressOut io.Writer
}

// NewOperationContext creates the per-call environment, including a temp
// directory name-spaced by format and timestamp.
func NewOperationContext(format string, workDir string, logger *log.Logger) (*OperationContext, error) {
	id := uuid.NewString()
	started := time.Now()

	tempDir := filepath.Join(os.TempDir(),
		fmt.Sprintf("noteport-%s-%s-%s", format, started.Format("20060102-150405"), id[:8]))
	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("pipeline: couldn't create temp directory %s: %w", tempDir, err)
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &OperationContext{
		ID:        id,
		Format:    format,
		WorkDir:   workDir,
		TempDir:   tempDir,
		StartedAt: started,
		Logger:    logger,
	}, nil
}

// Cleanup removes the operation's temp directory.  Errors are logged rather
// than returned: by the time we clean up, the result is already decided.
func (op *OperationContext) Cleanup() {
	if op.TempDir == "" {
		return
	}
	if err := os.RemoveAll(op.TempDir); err != nil {
		op.Logger.Printf("pipeline: couldn't remove temp directory %s: %v\n", op.TempDir, err)
	}
}
