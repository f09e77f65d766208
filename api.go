package graver

import (
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// WriteToBytesAs serializes v with T as the nominal root type. When v's
// runtime type differs from T the document starts with a type override, so a
// later FromBytes[T] can reconstruct the concrete value.
func WriteToBytesAs[T any](r *Registry, v T, opts ...WriteOpt) ([]byte, error) {
	var opt WriteOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	nominal := reflect.TypeOf(&v).Elem()
	rv := reflect.ValueOf(&v).Elem()
	return r.writeRoot(rv, nominal, opt)
}

// WriteToFile serializes v into path. A path ending in ".gz" is written
// gzip-compressed.
func (r *Registry) WriteToFile(v any, path string, opts ...WriteOpt) error {
	data, err := r.WriteToBytes(v, opts...)
	if err != nil {
		return err
	}
	return writeFileMaybeGzip(path, data)
}

// FromFile reads a document from path, transparently decompressing ".gz"
// files, and reconstructs a T.
func FromFile[T any](r *Registry, path string) (T, error) {
	var zero T
	data, err := readFileMaybeGzip(path)
	if err != nil {
		return zero, err
	}
	return FromBytes[T](r, data)
}

func writeFileMaybeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return AppendIssues(nil, Issue{Code: CodeIO, Message: err.Error(), Cause: err, Offset: -1})
	}
	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	_, werr := w.Write(data)
	if gz != nil {
		if cerr := gz.Close(); werr == nil {
			werr = cerr
		}
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return AppendIssues(nil, Issue{Code: CodeIO, Message: werr.Error(), Cause: werr, Offset: -1})
	}
	return nil
}

func readFileMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeIO, Message: err.Error(), Cause: err, Offset: -1})
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, gerr := gzip.NewReader(f)
		if gerr != nil {
			return nil, AppendIssues(nil, Issue{Code: CodeIO, Message: gerr.Error(), Cause: gerr, Offset: -1})
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeIO, Message: err.Error(), Cause: err, Offset: -1})
	}
	return data, nil
}
