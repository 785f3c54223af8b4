package fileutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func populate(t *testing.T) string {
	t.Helper()

	r := require.New(t)

	root := filepath.Join(t.TempDir(), "gnatpro", "22.1")

	r.NoError(os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	r.NoError(os.WriteFile(filepath.Join(root, "bin", "gnat"), []byte("#!/bin/sh\n"), 0o755))
	r.NoError(os.WriteFile(filepath.Join(root, "README"), []byte("hello"), 0o644))

	// Vendor trees ship read-only share directories.
	r.NoError(os.MkdirAll(filepath.Join(root, "share"), 0o755))
	r.NoError(os.WriteFile(filepath.Join(root, "share", "doc.txt"), []byte("doc"), 0o444))
	r.NoError(os.Chmod(filepath.Join(root, "share"), 0o555))

	t.Cleanup(func() {
		os.Chmod(filepath.Join(root, "share"), 0o755)
	})

	return root
}

func TestTreeSize(t *testing.T) {
	r := require.New(t)

	root := populate(t)

	rm, err := TreeSize(root)
	r.NoError(err)

	// root, bin, bin/gnat, README, share, share/doc.txt
	r.EqualValues(6, rm.Entries)
	r.Greater(rm.Bytes, int64(0))
}

func TestRemoveTree(t *testing.T) {
	t.Run("removes read-only trees and reports counts", func(t *testing.T) {
		r := require.New(t)

		root := populate(t)

		var ticks int

		rm, err := RemoveTree(context.Background(), root, func() { ticks++ })
		r.NoError(err)

		r.EqualValues(6, rm.Entries)
		r.Equal(6, ticks)

		_, err = os.Stat(root)
		r.True(os.IsNotExist(err))
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		r := require.New(t)

		root := populate(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := RemoveTree(ctx, root, nil)
		r.ErrorIs(err, context.Canceled)

		_, err = os.Stat(root)
		r.NoError(err)
	})
}
