// Package safepath confines every filesystem path used during scan, import
// and export to a configured root.  Handlers never touch os.* with a
// source-derived path directly; this resolver is the sole boundary between
// the host filesystem and path names a malicious or malformed source (say, a
// crafted archive entry) might supply.
package safepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// DefaultMaxDepth bounds how deep a relative path may nest under the root.
const DefaultMaxDepth = 32

type Resolver struct {
	root     string
	maxDepth int
}

// NewResolver builds a resolver anchored at root.  The root itself must
// exist; relative candidates are judged against its absolute form.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("safepath: couldn't absolutise root %s: %w", root, err)
	}

	return &Resolver{root: abs, maxDepth: DefaultMaxDepth}, nil
}

// WithMaxDepth overrides the traversal depth cap.
func (r *Resolver) WithMaxDepth(depth int) *Resolver {
	r.maxDepth = depth
	return r
}

// Root returns the canonical root all resolved paths stay under.
func (r *Resolver) Root() string { return r.root }

// shellMeta are characters that would let a path name smuggle shell or
// variable expansion into downstream tooling.
const shellMeta = "$`|;&<>*?\"'"

// Resolve validates candidate and returns the canonical absolute path,
// guaranteed to remain under the root.
func (r *Resolver) Resolve(candidate string) (string, error) {
	if candidate == "" {
		return "", fmt.Errorf("safepath: empty path")
	}

	if strings.ContainsRune(candidate, 0) {
		return "", fmt.Errorf("safepath: path contains NUL byte")
	}
	for _, c := range candidate {
		if c < 0x20 || c == 0x7f {
			return "", fmt.Errorf("safepath: path contains control character: %q", candidate)
		}
	}

	if strings.ContainsAny(candidate, shellMeta) {
		return "", fmt.Errorf("safepath: path contains shell metacharacter: %q", candidate)
	}

	normalized := filepath.ToSlash(candidate)
	parts := strings.Split(normalized, "/")
	depth := 0
	first := true
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("safepath: path traversal rejected: %q", candidate)
		}
		// Shells only expand a tilde that leads the path ("~", "~user");
		// a tilde inside a later component is just a filename character.
		if part == "~" || (first && strings.HasPrefix(part, "~")) {
			return "", fmt.Errorf("safepath: home-directory reference rejected: %q", candidate)
		}
		first = false
		depth++
	}
	if depth > r.maxDepth {
		return "", fmt.Errorf("safepath: path exceeds depth limit of %d: %q", r.maxDepth, candidate)
	}

	joined, err := securejoin.SecureJoin(r.root, normalized)
	if err != nil {
		return "", fmt.Errorf("safepath: couldn't join %q under root: %w", candidate, err)
	}

	// SecureJoin already guarantees containment; this is the invariant check.
	if joined != r.root && !strings.HasPrefix(joined, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("safepath: resolved path escaped root: %q", candidate)
	}

	return joined, nil
}

// ReadFile resolves the candidate and reads it.
func (r *Resolver) ReadFile(candidate string) ([]byte, error) {
	abs, err := r.Resolve(candidate)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("safepath: couldn't read %s: %w", abs, err)
	}
	return data, nil
}

// WriteFile resolves the candidate, creates parent directories under the
// root, and writes the file.
func (r *Resolver) WriteFile(candidate string, data []byte) error {
	abs, err := r.Resolve(candidate)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return fmt.Errorf("safepath: couldn't create directory for %s: %w", abs, err)
	}

	if err := os.WriteFile(abs, data, 0640); err != nil {
		return fmt.Errorf("safepath: couldn't write %s: %w", abs, err)
	}
	return nil
}

// MkdirAll resolves the candidate directory and creates it.
func (r *Resolver) MkdirAll(candidate string) (string, error) {
	abs, err := r.Resolve(candidate)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0750); err != nil {
		return "", fmt.Errorf("safepath: couldn't create directory %s: %w", abs, err)
	}
	return abs, nil
}

// Rel returns candidate's path relative to the root, for recording in
// FileInfo.
func (r *Resolver) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", fmt.Errorf("safepath: couldn't compute relative path of %s: %w", abs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("safepath: %s lies outside root %s", abs, r.root)
	}
	return rel, nil
}
