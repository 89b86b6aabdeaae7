package pipeline

import "context"

// Importer is the capability set of a format that can be read into the note
// repository.
type Importer interface {
	// Format is the registry tag, e.g. "vault".
	Format() string
	// Describe is a one-line human description for `noteport formats`.
	Describe() string

	// Validate schema-checks opts and confirms the source exists and is of
	// the expected kind.  It must fail before any repository I/O.
	Validate(opts *Options) error

	// Scan enumerates everything the import would touch, attachments
	// included, without contacting the repository.  Idempotent.
	Scan(ctx context.Context, opts *Options, op *OperationContext) ([]FileInfo, error)

	// Import transforms files into repository notes.  With opts.DryRun it
	// returns immediately with every file marked "would import" and
	// performs zero writes.
	Import(ctx context.Context, repo Repository, files []FileInfo, opts *Options, op *OperationContext) (*ImportResult, error)
}

// Exporter is the capability set of a format notes can be written out to.
type Exporter interface {
	Format() string
	Describe() string

	Validate(opts *Options) error

	// Plan enumerates the repository notes reachable from the given root
	// ids (plus children and attachments) as FileInfo descriptions.  No
	// mutation.
	Plan(ctx context.Context, repo Repository, ids []string, opts *Options, op *OperationContext) ([]FileInfo, error)

	// Export materializes each planned file into the destination
	// representation.
	Export(ctx context.Context, repo Repository, ids []string, opts *Options, op *OperationContext) (*ExportResult, error)
}

// Syncer is the optional two-way capability; only the version-control
// snapshot format implements it.
type Syncer interface {
	Format() string
	Validate(opts *Options) error
	Sync(ctx context.Context, repo Repository, opts *Options, op *OperationContext) (*SyncResult, error)
}
