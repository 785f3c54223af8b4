package ops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/AdaCore/lmod-manager/pkg/sumfile"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

type ArchiveSum struct {
	common
}

// Record hashes archives into the sums file at path, so that installs
// can verify them later. Entries for other archives are kept and
// re-recording an archive replaces its entry. Archive names have to
// parse, which catches sums files built from stray files.
func (a *ArchiveSum) Record(ctx context.Context, path, algo string, archives []string) error {
	sums := &sumfile.Sumfile{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := sumfile.LoadFile(path)
		if err != nil {
			return err
		}

		sums = loaded
	}

	ui := GetUI(ctx)

	for _, archive := range archives {
		if _, err := tool.FromArchive(archive); err != nil {
			return err
		}

		if err := requireFile(archive); err != nil {
			return err
		}

		h, err := sumfile.HashFile(algo, archive)
		if err != nil {
			return track(err)
		}

		name := filepath.Base(archive)

		sum, err := sums.Add(name, algo, h)
		if err != nil {
			return track(err)
		}

		a.L().Debug("recorded archive sum", "entity", name, "sum", sum)

		ui.RecordedSum(name, sum)
	}

	f, err := os.Create(path)
	if err != nil {
		return track(err)
	}

	defer f.Close()

	return sums.Save(f)
}
