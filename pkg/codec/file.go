package codec

import (
	"os"

	"github.com/ajitpratap0/nebulaframe/pkg/compression"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// WriteFile writes t as a document. A compression extension such as .gz or
// .zst selects the matching compressor.
func WriteFile(path string, t *frame.Table, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "create "+path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "close "+path)
		}
	}()

	w, err := compression.NewWriter(f, compression.ForPath(path), compression.Default)
	if err != nil {
		return err
	}
	if err := EncodeDocumentTo(w, t, opts); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "write "+path)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "flush "+path)
	}
	return nil
}

// ReadFile decodes the file at path, decompressing by extension.
func ReadFile(path string, opts Options) (*frame.Table, error) {
	return NewDecoder(opts).ReadFile(path)
}

func (d *Decoder) ReadFile(path string) (*frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "open "+path)
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.ForPath(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "open "+path)
	}
	defer r.Close()
	return d.DecodeReader(r)
}
