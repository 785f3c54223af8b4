package fileutils

import (
	"context"
	"os"
	"path/filepath"
)

// Removed reports what a tree walk covered.
type Removed struct {
	Entries int64
	Bytes   int64
}

// TreeSize totals the entries and bytes beneath root.
func TreeSize(root string) (Removed, error) {
	var rm Removed

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rm.Entries++
		rm.Bytes += info.Size()

		return nil
	})

	return rm, err
}

// RemoveTree deletes root recursively, reporting what it removed.
// Vendor installers mark parts of their tree read-only, so write
// permission is restored on the way down first. tick, when set, is
// called once per entry.
func RemoveTree(ctx context.Context, root string, tick func()) (Removed, error) {
	var rm Removed

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.Mode().Perm()&0200 == 0 {
			err = os.Chmod(path, info.Mode().Perm()|0200)
			if err != nil {
				return err
			}
		}

		rm.Entries++
		rm.Bytes += info.Size()

		if tick != nil {
			tick()
		}

		return nil
	})
	if err != nil {
		return rm, err
	}

	return rm, os.RemoveAll(root)
}
