package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"

	"golang.org/x/exp/maps"
)

// Manager owns the format registry and builds the per-operation environment.
// It exposes one uniform call surface regardless of format; configuration and
// environment failures are returned as errors, per-item failures only ever
// appear inside result summaries.
type Manager struct {
	repo      Repository
	importers map[string]Importer
	exporters map[string]Exporter
	syncers   map[string]Syncer

	logger      *log.Logger
	progressOut io.Writer
	onProgress  ProgressFunc
}

type ManagerOption func(*Manager)

// WithLogger routes operational logging; defaults to a discard logger.
func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithProgressOutput enables mpb progress bars on the given writer.
func WithProgressOutput(w io.Writer) ManagerOption {
	return func(m *Manager) { m.progressOut = w }
}

// WithProgressFunc registers a callback for ordered progress events.
func WithProgressFunc(fn ProgressFunc) ManagerOption {
	return func(m *Manager) { m.onProgress = fn }
}

func NewManager(repo Repository, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:      repo,
		importers: make(map[string]Importer),
		exporters: make(map[string]Exporter),
		syncers:   make(map[string]Syncer),
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) RegisterImporter(h Importer) {
	m.importers[h.Format()] = h
}

func (m *Manager) RegisterExporter(h Exporter) {
	m.exporters[h.Format()] = h
	if s, ok := h.(Syncer); ok {
		m.syncers[h.Format()] = s
	}
}

// RegisterSyncer is for handlers whose sync capability lives on the importer
// side.
func (m *Manager) RegisterSyncer(h Syncer) {
	m.syncers[h.Format()] = h
}

// ImportFormats lists the registered import format tags, sorted.
func (m *Manager) ImportFormats() []string {
	keys := maps.Keys(m.importers)
	sort.Strings(keys)
	return keys
}

// ExportFormats lists the registered export format tags, sorted.
func (m *Manager) ExportFormats() []string {
	keys := maps.Keys(m.exporters)
	sort.Strings(keys)
	return keys
}

// DescribeImporter returns the handler's one-line description.
func (m *Manager) DescribeImporter(format string) string {
	if h, ok := m.importers[format]; ok {
		return h.Describe()
	}
	return ""
}

// DescribeExporter returns the handler's one-line description.
func (m *Manager) DescribeExporter(format string) string {
	if h, ok := m.exporters[format]; ok {
		return h.Describe()
	}
	return ""
}

// Import runs the full scan → import sequence for one format.
func (m *Manager) Import(ctx context.Context, format string, opts *Options) (*ImportResult, error) {
	handler, ok := m.importers[format]
	if !ok {
		return nil, Errf(CodeUnknownFormat, "no import handler registered for format %q", format)
	}

	opts.Normalize()
	if err := handler.Validate(opts); err != nil {
		return nil, fmt.Errorf("pipeline: configuration invalid for %s import: %w", format, err)
	}

	op, err := m.newOperation(format, opts)
	if err != nil {
		return nil, err
	}
	defer op.Cleanup()

	m.logger.Printf("Scanning %s source %s...\n", format, opts.Path)
	files, err := handler.Scan(ctx, opts, op)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s scan failed: %w", format, err)
	}
	m.logger.Printf("...found %d files to import.\n", len(files))

	result, err := handler.Import(ctx, m.repo, files, opts, op)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s import failed: %w", format, err)
	}
	result.Format = format

	return result, nil
}

// Export runs the full plan → export sequence for one format.
func (m *Manager) Export(ctx context.Context, format string, ids []string, opts *Options) (*ExportResult, error) {
	handler, ok := m.exporters[format]
	if !ok {
		return nil, Errf(CodeUnknownFormat, "no export handler registered for format %q", format)
	}

	if len(ids) == 0 {
		return nil, Errf(CodeBadConfig, "no note ids given to export")
	}

	opts.Normalize()
	if err := handler.Validate(opts); err != nil {
		return nil, fmt.Errorf("pipeline: configuration invalid for %s export: %w", format, err)
	}

	op, err := m.newOperation(format, opts)
	if err != nil {
		return nil, err
	}
	defer op.Cleanup()

	result, err := handler.Export(ctx, m.repo, ids, opts, op)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s export failed: %w", format, err)
	}
	result.Format = format

	return result, nil
}

// Sync runs a two-way synchronisation for formats that support it.
func (m *Manager) Sync(ctx context.Context, format string, opts *Options) (*SyncResult, error) {
	handler, ok := m.syncers[format]
	if !ok {
		return nil, Errf(CodeUnsupportedOperation, "format %q does not support sync", format)
	}

	opts.Normalize()
	if err := handler.Validate(opts); err != nil {
		return nil, fmt.Errorf("pipeline: configuration invalid for %s sync: %w", format, err)
	}

	op, err := m.newOperation(format, opts)
	if err != nil {
		return nil, err
	}
	defer op.Cleanup()

	result, err := handler.Sync(ctx, m.repo, opts, op)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s sync failed: %w", format, err)
	}
	result.Format = format

	return result, nil
}

// Scan is the preview-only entry point: enumerate without mutation.
func (m *Manager) Scan(ctx context.Context, format string, opts *Options) ([]FileInfo, error) {
	handler, ok := m.importers[format]
	if !ok {
		return nil, Errf(CodeUnknownFormat, "no import handler registered for format %q", format)
	}

	opts.Normalize()
	if err := handler.Validate(opts); err != nil {
		return nil, fmt.Errorf("pipeline: configuration invalid for %s scan: %w", format, err)
	}

	op, err := m.newOperation(format, opts)
	if err != nil {
		return nil, err
	}
	defer op.Cleanup()

	return handler.Scan(ctx, opts, op)
}

// PlanExport is the preview-only dual of Scan.
func (m *Manager) PlanExport(ctx context.Context, format string, ids []string, opts *Options) ([]FileInfo, error) {
	handler, ok := m.exporters[format]
	if !ok {
		return nil, Errf(CodeUnknownFormat, "no export handler registered for format %q", format)
	}

	opts.Normalize()
	if err := handler.Validate(opts); err != nil {
		return nil, fmt.Errorf("pipeline: configuration invalid for %s plan: %w", format, err)
	}

	op, err := m.newOperation(format, opts)
	if err != nil {
		return nil, err
	}
	defer op.Cleanup()

	return handler.Plan(ctx, m.repo, ids, opts, op)
}

func (m *Manager) newOperation(format string, opts *Options) (*OperationContext, error) {
	op, err := NewOperationContext(format, opts.Path, m.logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: couldn't build operation context: %w", err)
	}
	op.OnProgress = m.onProgress
	op.ProgressOut = m.progressOut
	return op, nil
}
