// Package bundle writes a zstd-compressed tar of diagnostic files (the
// configuration and the license server logs) for hand-off to support.
package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Write creates a .tar.zst at outPath containing every file in candidates
// that exists. Missing candidates are skipped, not errors: a service that
// never started has no log yet. Returns the paths actually included.
func Write(outPath string, candidates []string) ([]string, error) {
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("creating bundle: %w", err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("initializing compressor: %w", err)
	}
	tw := tar.NewWriter(enc)

	var included []string
	for _, path := range candidates {
		ok, err := addFile(tw, path)
		if err != nil {
			tw.Close()
			enc.Close()
			return included, err
		}
		if ok {
			included = append(included, path)
		}
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return included, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return included, fmt.Errorf("finalizing compression: %w", err)
	}
	return included, nil
}

func addFile(tw *tar.Writer, path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, nil
	}
	defer f.Close()

	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return false, fmt.Errorf("archiving %s: %w", path, err)
	}
	// Flatten to base names; the bundle is a grab bag, not a tree.
	hdr.Name = filepath.Base(path)

	if err := tw.WriteHeader(hdr); err != nil {
		return false, fmt.Errorf("archiving %s: %w", path, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return false, fmt.Errorf("archiving %s: %w", path, err)
	}
	return true, nil
}
