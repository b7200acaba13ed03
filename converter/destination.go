package converter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/binzume/umeshconv/umesh"
)

// FileDestinationProvider chooses the path of the main output file.
// ok == false cancels the export without an error.
type FileDestinationProvider interface {
	Destination(kind umesh.Kind, suggested string) (path string, ok bool, err error)
}

// FixedDestination always returns the same path. The extension must match the kind.
type FixedDestination string

func (d FixedDestination) Destination(kind umesh.Kind, suggested string) (string, bool, error) {
	if k := umesh.KindFromPath(string(d)); k != kind {
		return "", false, fmt.Errorf("converter: %s is not a %s file", d, kind.Extension())
	}
	return string(d), true, nil
}

// DirDestination writes <dir>/<suggested><ext>.
type DirDestination string

func (d DirDestination) Destination(kind umesh.Kind, suggested string) (string, bool, error) {
	return filepath.Join(string(d), clipFileName(suggested)+kind.Extension()), true, nil
}

// DestinationFunc adapts a function to FileDestinationProvider.
type DestinationFunc func(kind umesh.Kind, suggested string) (string, bool, error)

func (f DestinationFunc) Destination(kind umesh.Kind, suggested string) (string, bool, error) {
	return f(kind, suggested)
}

// writeFileAtomic writes to a temporary file in the target directory and
// renames it to path. Nothing is left behind on error or cancellation.
func writeFileAtomic(ctx context.Context, path string, write func(w io.Writer) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
