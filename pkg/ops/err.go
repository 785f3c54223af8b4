package ops

import (
	"os"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("entry not found")

func track(err error) error {
	return errors.WithStack(err)
}

// requireFile fails in the conventional way when path is not a
// regular file.
func requireFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return errors.Errorf("file %q not found", path)
	}

	return nil
}

// requireDir fails in the conventional way when path is not a
// directory.
func requireDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return errors.Errorf("directory %q not found", path)
	}

	return nil
}
