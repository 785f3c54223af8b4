package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"
	"github.com/pkg/errors"

	"github.com/AdaCore/lmod-manager/pkg/tool"
)

// installerScript drives every vendor archive's installation.
const installerScript = "doinstall"

type ArchiveExtract struct {
	common
}

// Extract unpacks the archive into scratch and returns the directory
// holding the vendor installer script.
func (a *ArchiveExtract) Extract(ctx context.Context, d *tool.Descriptor, archive, scratch string) (string, error) {
	GetUI(ctx).Extract(archive)

	var matched string

	matchingLen := 0
	for k := range getter.Decompressors {
		if strings.HasSuffix(archive, "."+k) && len(k) > matchingLen {
			matched = k
			matchingLen = len(k)
		}
	}

	dec, ok := getter.Decompressors[matched]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "no decompressor for %s", filepath.Base(archive))
	}

	tgt := filepath.Join(scratch, "unpacked")

	a.L().Debug("decompressing archive", "archive", archive, "target", tgt, "format", matched)

	err := dec.Decompress(tgt, archive, true, 0)
	if err != nil {
		return "", track(err)
	}

	root := tgt

	if fi, err := os.Stat(filepath.Join(root, d.ExtractedDir())); err == nil && fi.IsDir() {
		root = filepath.Join(root, d.ExtractedDir())
	} else {
		sf, err := os.ReadDir(root)
		if err != nil {
			return "", track(err)
		}

		var (
			ent os.DirEntry
			cnt int
		)

		for _, e := range sf {
			if e.Name()[0] != '.' {
				cnt++
				ent = e
			}
		}

		if cnt == 1 && ent.IsDir() {
			root = filepath.Join(root, ent.Name())
		}
	}

	script := filepath.Join(root, installerScript)

	if err := findExecutable(script); err != nil {
		return "", errors.Wrapf(ErrNotFound, "unable to find installer script: %s", script)
	}

	a.L().Debug("located installer", "script", script)

	return root, nil
}

func findExecutable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	if m := fi.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}

	return os.ErrPermission
}
