package coco

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tphakala/via2coco/internal/errors"
)

const (
	componentCOCO = "coco"
	indent        = "    "
	tempPattern   = ".via2coco-*.tmp"
	filePerm      = 0o644
)

// Encode writes d as indented JSON followed by a newline. HTML characters
// are not escaped.
func Encode(w io.Writer, d *Dataset) error {
	if d == nil {
		d = NewDataset()
	}
	d.normalize()

	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return errors.New(fmt.Errorf("encode dataset: %w", err)).
			Component(componentCOCO).
			Category(errors.CategoryConversion).
			Build()
	}
	return nil
}

// Write stores d at path on fsys. The document goes to a temporary file in
// the same directory which is renamed over path once complete, so path is
// either the previous content or the full new document.
func Write(fsys afero.Fs, path string, d *Dataset) (err error) {
	tmp, err := afero.TempFile(fsys, filepath.Dir(path), tempPattern)
	if err != nil {
		return writeError(fmt.Errorf("create temporary output: %w", err), path)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = fsys.Remove(tmpName)
		}
	}()

	if err = Encode(tmp, d); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return writeError(fmt.Errorf("sync output: %w", err), path)
	}
	if err = tmp.Close(); err != nil {
		return writeError(fmt.Errorf("close output: %w", err), path)
	}
	if err = fsys.Chmod(tmpName, filePerm); err != nil {
		return writeError(fmt.Errorf("set output permissions: %w", err), path)
	}
	if err = fsys.Rename(tmpName, path); err != nil {
		return writeError(fmt.Errorf("replace output: %w", err), path)
	}

	return nil
}

// Read decodes a dataset previously written with Write.
func Read(fsys afero.Fs, path string) (*Dataset, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("read dataset: %w", err), path)
	}

	d := NewDataset()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, errors.New(fmt.Errorf("decode dataset: %w", err)).
			Component(componentCOCO).
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return d, nil
}

func writeError(err error, path string) error {
	return errors.New(err).
		Component(componentCOCO).
		Category(errors.CategoryFileIO).
		FileContext(path).
		Build()
}
