package capability

import (
	"fmt"
	"sync"
	"time"
)

// Capability names recognised by the loader.  Anything outside this
// allow-list is rejected before construction is even attempted; that's a
// security boundary, not an optimisation.
const (
	NameArchiveReader = "archive-reader"
	NameArchiveWriter = "archive-writer"
	NameFrontMatter   = "front-matter"
)

var factories = map[string]func() (any, error){
	NameArchiveReader: func() (any, error) { return zipArchive{}, nil },
	NameArchiveWriter: func() (any, error) { return zipArchive{}, nil },
	NameFrontMatter:   func() (any, error) { return yamlFrontMatter{}, nil },
}

// installHints tell a user what to do when a required capability is missing.
var installHints = map[string]string{
	NameArchiveReader: "rebuild noteport with archive support (github.com/klauspost/compress)",
	NameArchiveWriter: "rebuild noteport with archive support (github.com/klauspost/compress)",
	NameFrontMatter:   "rebuild noteport with front-matter support (gopkg.in/yaml.v3)",
}

// LoadOptions tune one capability load.
type LoadOptions struct {
	// Optional capabilities fall back instead of failing.
	Optional bool
	// Timeout bounds construction; zero means DefaultTimeout.
	Timeout time.Duration
	// Fallback is returned for optional capabilities that fail to load.
	Fallback any
}

const DefaultTimeout = 5 * time.Second

// Loader constructs capabilities on demand and caches successful loads for
// the process lifetime.
type Loader struct {
	mu    sync.Mutex
	cache map[string]any
}

func NewLoader() *Loader {
	return &Loader{cache: make(map[string]any)}
}

// Load resolves one capability by name.  Construction is raced against the
// timeout; on timeout or failure an optional capability returns its fallback
// while a required one fails with the missing capability named.
func (l *Loader) Load(name string, opts LoadOptions) (any, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("capability: %q is not on the allow-list", name)
	}

	l.mu.Lock()
	if cached, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type loaded struct {
		value any
		err   error
	}
	done := make(chan loaded, 1)
	go func() {
		v, err := factory()
		done <- loaded{v, err}
	}()

	var result loaded
	select {
	case result = <-done:
	case <-time.After(timeout):
		result = loaded{nil, fmt.Errorf("capability: loading %q timed out after %s", name, timeout)}
	}

	if result.err != nil {
		if opts.Optional {
			if result.value = opts.Fallback; result.value != nil {
				return result.value, nil
			}
			return nil, nil
		}
		hint := installHints[name]
		return nil, fmt.Errorf("capability: required capability %q unavailable (%s): %w", name, hint, result.err)
	}

	l.mu.Lock()
	l.cache[name] = result.value
	l.mu.Unlock()

	return result.value, nil
}

// Archive returns the archive reader and writer, degrading to stand-ins that
// report the missing capability on use.
func (l *Loader) Archive() (ArchiveReader, ArchiveWriter) {
	var reader ArchiveReader
	var writer ArchiveWriter

	if v, err := l.Load(NameArchiveReader, LoadOptions{Optional: true}); err == nil && v != nil {
		if r, ok := v.(ArchiveReader); ok {
			reader = r
		}
	}
	if v, err := l.Load(NameArchiveWriter, LoadOptions{Optional: true}); err == nil && v != nil {
		if w, ok := v.(ArchiveWriter); ok {
			writer = w
		}
	}

	if reader == nil {
		reader = unavailableArchive{reason: fmt.Errorf("archive reader failed to load")}
	}
	if writer == nil {
		writer = unavailableArchive{reason: fmt.Errorf("archive writer failed to load")}
	}

	return reader, writer
}

// FrontMatterCodec returns the front-matter codec, degrading to a pass-through
// that reports no header.
func (l *Loader) FrontMatterCodec() FrontMatter {
	v, err := l.Load(NameFrontMatter, LoadOptions{Optional: true, Fallback: noFrontMatter{}})
	if err != nil || v == nil {
		return noFrontMatter{}
	}
	if fm, ok := v.(FrontMatter); ok {
		return fm
	}
	return noFrontMatter{}
}
