package capability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/noteport/noteport/safepath"
)

// zipArchive implements ArchiveReader and ArchiveWriter on top of the
// klauspost zip codec.
type zipArchive struct{}

func (zipArchive) List(archivePath string) ([]ArchiveEntry, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("capability: couldn't open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	entries := make([]ArchiveEntry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, ArchiveEntry{
			Name:     f.Name,
			Size:     int64(f.UncompressedSize64),
			Modified: f.Modified,
			Dir:      f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/"),
		})
	}

	return entries, nil
}

func (zipArchive) Extract(archivePath string, dest *safepath.Resolver) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("capability: couldn't open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	extracted := []string{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if _, err := dest.MkdirAll(f.Name); err != nil {
				return extracted, fmt.Errorf("capability: refusing archive directory entry: %w", err)
			}
			continue
		}

		abs, err := dest.Resolve(f.Name)
		if err != nil {
			return extracted, fmt.Errorf("capability: refusing archive entry %q: %w", f.Name, err)
		}

		rc, err := f.Open()
		if err != nil {
			return extracted, fmt.Errorf("capability: couldn't open archive entry %q: %w", f.Name, err)
		}

		if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
			rc.Close()
			return extracted, fmt.Errorf("capability: couldn't create directory for %q: %w", f.Name, err)
		}

		out, err := os.Create(abs)
		if err != nil {
			rc.Close()
			return extracted, fmt.Errorf("capability: couldn't create %s: %w", abs, err)
		}

		_, err = io.Copy(out, rc)
		rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return extracted, fmt.Errorf("capability: couldn't extract %q: %w", f.Name, err)
		}

		extracted = append(extracted, abs)
	}

	return extracted, nil
}

func (zipArchive) Create(archivePath string, srcDir string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("capability: couldn't create archive %s: %w", archivePath, err)
	}

	w := zip.NewWriter(out)

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		f, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(f, src)
		return err
	})
	if err != nil {
		w.Close()
		out.Close()
		return fmt.Errorf("capability: couldn't pack %s: %w", srcDir, err)
	}

	if err := w.Close(); err != nil {
		out.Close()
		return fmt.Errorf("capability: couldn't finalise archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("capability: couldn't close archive: %w", err)
	}

	return nil
}

// unavailableArchive is the fallback when the zip capability is absent or
// timed out.  Every call reports the missing capability; nothing panics.
type unavailableArchive struct{ reason error }

func (u unavailableArchive) List(string) ([]ArchiveEntry, error) {
	return nil, fmt.Errorf("capability: archive support unavailable: %w", u.reason)
}

func (u unavailableArchive) Extract(string, *safepath.Resolver) ([]string, error) {
	return nil, fmt.Errorf("capability: archive support unavailable: %w", u.reason)
}

func (u unavailableArchive) Create(string, string) error {
	return fmt.Errorf("capability: archive support unavailable: %w", u.reason)
}
