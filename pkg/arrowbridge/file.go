package arrowbridge

import (
	"os"

	"github.com/ajitpratap0/nebulaframe/pkg/compression"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// WriteFile writes t as an Arrow stream, compressed when path ends in a
// compression extension such as .arrow.zst.
func WriteFile(path string, t *frame.Table, opts Options) (res Result, err error) {
	f, err := os.Create(path)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeFile, "create "+path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "close "+path)
		}
	}()

	w, err := compression.NewWriter(f, compression.ForPath(path), compression.Default)
	if err != nil {
		return Result{}, err
	}
	res, err = Write(w, t, opts)
	if cerr := w.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, errors.ErrorTypeFile, "flush "+path)
	}
	return res, err
}

// ReadFile reads an Arrow stream written by WriteFile.
func ReadFile(path string, opts Options) (*frame.Table, Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Result{}, errors.Wrap(err, errors.ErrorTypeFile, "open "+path)
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.ForPath(path))
	if err != nil {
		return nil, Result{}, err
	}
	defer r.Close()
	return Read(r, opts)
}
