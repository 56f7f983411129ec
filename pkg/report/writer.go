package report

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// IOError reports a failed report write.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot %s report %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WriteFile encodes rep into path. The report is written to a temporary file
// next to path and renamed into place, so path is either the previous content
// or the complete new report.
func WriteFile(fs afero.Fs, path string, rep *Report, format Format) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := afero.TempFile(fs, dir, "."+base+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	name := tmp.Name()
	fail := func(op string, err error) error {
		_ = fs.Remove(name)
		return &IOError{Op: op, Path: path, Err: err}
	}

	if err := Encode(tmp, rep, format); err != nil {
		_ = tmp.Close()
		return fail("write", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err := fs.Chmod(name, 0o644); err != nil {
		return fail("chmod", err)
	}
	if err := fs.Rename(name, path); err != nil {
		return fail("rename", err)
	}
	return nil
}
