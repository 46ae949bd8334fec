// Package jsonfile reads and atomically writes JSON documents on local disk.
// Writers serialize into a temporary file in the destination directory and
// rename it into place, so concurrent readers observe either the complete
// previous document or the complete new one.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// Read decodes the file at path into v. It reports false with a nil error
// when the file does not exist.
func Read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &DecodeError{Path: path, Err: err}
	}
	return true, nil
}

// DecodeError is returned by Read when a file exists but is not valid JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Write encodes v as indented JSON and atomically replaces path.
func Write(path string, v any) error {
	data, err := encode(path, v)
	if err != nil {
		return err
	}
	return WriteBytes(path, data)
}

// WriteAll replaces every path in docs with its encoded value. All documents
// are encoded and staged in temporary files before the first rename, so an
// encoding or write failure leaves every existing file untouched.
func WriteAll(docs map[string]any) error {
	paths := slices.Sorted(maps.Keys(docs))
	staged := make([]string, 0, len(paths))
	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for _, path := range paths {
		data, err := encode(path, docs[path])
		if err != nil {
			return err
		}
		tmp, err := stage(path, data)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, path := range paths {
		if err := os.Rename(staged[i], path); err != nil {
			return fmt.Errorf("renaming into %s: %w", path, err)
		}
	}
	staged = nil
	return nil
}

// WriteBytes atomically replaces path with data. On any failure the
// temporary file is removed and path is left untouched.
func WriteBytes(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

func encode(path string, v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// stage writes data to a synced temporary file next to path and returns its
// name. The temporary file lives in the same directory as path so the rename
// never crosses filesystems.
func stage(path string, data []byte) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	return tmp.Name(), nil
}
