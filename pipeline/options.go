package pipeline

import "fmt"

// DuplicatePolicy controls what import does when the target parent already
// has a child with the same title.
type DuplicatePolicy string

const (
	DuplicateSkip      DuplicatePolicy = "skip"
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	DuplicateMerge     DuplicatePolicy = "merge"
)

// GitOptions configures the version-control snapshot handler.
type GitOptions struct {
	Branch      string `yaml:"branch"`
	Remote      string `yaml:"remote"`
	AuthorName  string `yaml:"author-name"`
	AuthorEmail string `yaml:"author-email"`
	Message     string `yaml:"message"`
	AutoCommit  bool   `yaml:"auto-commit"`
}

// Options is the configuration one operation runs under.  The common fields
// apply to every format; the rest are consulted only by the format they
// belong to.
type Options struct {
	// Source directory/archive for import, destination for export.
	Path string

	// Root note under which imported notes are created.
	ParentNoteID string

	DryRun             bool
	Duplicates         DuplicatePolicy
	PreserveStructure  bool
	IncludeAttachments bool

	BatchSize   int
	Concurrency int

	// vault
	WikiLinkMode string // keep or markdown

	// pagearchive
	BlockMode string // strict or loose

	// dirtree
	Patterns  []string
	Recursive bool

	// gitsnap
	Git GitOptions
}

const (
	defaultBatchSize   = 50
	defaultConcurrency = 4
	maxConcurrency     = 64
)

// Normalize fills defaults and bounds the numeric knobs.  Handlers call it
// from Validate before anything else.
func (o *Options) Normalize() {
	if o.Duplicates == "" {
		o.Duplicates = DuplicateSkip
	}
	if o.ParentNoteID == "" {
		o.ParentNoteID = "root"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Concurrency > maxConcurrency {
		o.Concurrency = maxConcurrency
	}
	if o.WikiLinkMode == "" {
		o.WikiLinkMode = "keep"
	}
	if o.BlockMode == "" {
		o.BlockMode = "loose"
	}
}

// ValidateCommon checks the schema-level constraints shared by every format.
// It performs no I/O.
func (o *Options) ValidateCommon() error {
	switch o.Duplicates {
	case DuplicateSkip, DuplicateOverwrite, DuplicateMerge:
	default:
		return Errf(CodeBadConfig, "unknown duplicate policy %q", o.Duplicates)
	}

	switch o.WikiLinkMode {
	case "keep", "markdown":
	default:
		return Errf(CodeBadConfig, "unknown wiki-link mode %q", o.WikiLinkMode)
	}

	switch o.BlockMode {
	case "strict", "loose":
	default:
		return Errf(CodeBadConfig, "unknown block mode %q", o.BlockMode)
	}

	if o.Path == "" {
		return Errf(CodeBadConfig, "no path configured")
	}

	if o.BatchSize > 10000 {
		return Errf(CodeBadConfig, "batch size %d out of range", o.BatchSize)
	}

	return nil
}

// String renders the policy for flag help output.
func (p DuplicatePolicy) String() string { return string(p) }

// Set implements pflag.Value so the policy can be bound to a flag directly.
func (p *DuplicatePolicy) Set(v string) error {
	switch DuplicatePolicy(v) {
	case DuplicateSkip, DuplicateOverwrite, DuplicateMerge:
		*p = DuplicatePolicy(v)
		return nil
	}
	return fmt.Errorf("pipeline: unknown duplicate policy %q", v)
}

// Type implements pflag.Value.
func (p *DuplicatePolicy) Type() string { return "policy" }
