package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AdaCore/lmod-manager/pkg/config"
	"github.com/AdaCore/lmod-manager/pkg/data"
	"github.com/AdaCore/lmod-manager/pkg/lmod"
	"github.com/AdaCore/lmod-manager/pkg/lockfile"
	"github.com/AdaCore/lmod-manager/pkg/sumfile"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

type ToolInstall struct {
	common
}

// Install drives one archive through the whole pipeline: fetch,
// unpack, run the vendor installer against the target prefix, then
// register the result with Lmod. The install dir and modules dir have
// to exist already; this tool configures machines, it does not lay
// them out.
func (t *ToolInstall) Install(ctx context.Context, ienv *InstallEnv, d *tool.Descriptor, src string, sums *sumfile.Sumfile) error {
	if err := requireDir(ienv.InstallDir); err != nil {
		return err
	}

	if err := requireDir(ienv.ModulesDir); err != nil {
		return err
	}

	ui := GetUI(ctx)

	prefix := ienv.Prefix(d)

	ui.InstallPrologue(d, prefix)

	if !config.HostMatches(d.Target) {
		t.L().Warn("archive targets a different architecture than this host",
			"target", d.Target)
	}

	if ienv.Explain {
		return t.explain(ienv, d, src)
	}

	unlock, err := lockfile.Take(ctx, ienv.LockPath(), func() {
		ui.WaitingForLock(ienv.LockPath(), lockfile.Holder(ienv.LockPath()))
	})
	if err != nil {
		return track(err)
	}

	defer unlock()

	scratch, err := os.MkdirTemp(ienv.ScratchBase, "lmod-manager-*")
	if err != nil {
		return track(err)
	}

	if ienv.KeepScratch {
		t.L().Info("retaining scratch dir", "path", scratch)
	} else {
		defer os.RemoveAll(scratch)
	}

	var af ArchiveFetch
	af.SetLogger(t.L())

	archive, sum, err := af.Resolve(ctx, src, scratch, sums)
	if err != nil {
		return err
	}

	var ae ArchiveExtract
	ae.SetLogger(t.L())

	root, err := ae.Extract(ctx, d, archive, scratch)
	if err != nil {
		return err
	}

	// Installers create the version directory themselves but not the
	// product directory above it.
	if err := os.MkdirAll(filepath.Dir(prefix), 0755); err != nil {
		return track(err)
	}

	ui.RunInstaller(d)

	if err := t.runInstaller(ctx, d, root, prefix); err != nil {
		return err
	}

	if fi, err := os.Stat(filepath.Join(prefix, d.Product.Marker)); err != nil || fi.IsDir() {
		t.L().Warn("installed tree is missing its marker",
			"prefix", prefix, "marker", d.Product.Marker)
	}

	if err := t.writeReceipt(d, prefix, sum); err != nil {
		t.L().Warn("unable to write install receipt", "error", err)
	}

	var mw ModulefileWrite
	mw.SetLogger(t.L())

	mf, err := mw.Write(ienv, d)
	if err != nil {
		return err
	}

	ui.Installed(d, prefix, mf)

	return nil
}

func (t *ToolInstall) explain(ienv *InstallEnv, d *tool.Descriptor, src string) error {
	fmt.Printf("  archive:     %s\n", src)
	fmt.Printf("  product:     %s\n", d.Product.Name)
	fmt.Printf("  module:      %s\n", d.String())
	fmt.Printf("  prefix:      %s\n", ienv.Prefix(d))
	fmt.Printf("  module file: %s\n", lmod.Path(ienv.ModulesDir, d.ModuleName(), d.Version))
	fmt.Printf("  installer:   %s, %s\n", installerScript, d.Product.Style)

	return nil
}

func (t *ToolInstall) runInstaller(ctx context.Context, d *tool.Descriptor, dir, prefix string) error {
	var (
		args  []string
		stdin string
	)

	switch d.Product.Style {
	case tool.StyleAnswers:
		// Accept the default base dir, name the prefix, confirm twice.
		stdin = "\n" + prefix + "\nY\nY\n"
	case tool.StylePrefixStdin:
		stdin = prefix + "\n"
	case tool.StylePrefixArg:
		args = append(args, prefix)
	}

	cmd := exec.CommandContext(ctx, "./"+installerScript, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)

	t.L().Debug("running installer", "dir", dir, "args", args, "style", d.Product.Style)

	return t.runCmd(d.ModuleName(), cmd)
}

func (t *ToolInstall) runCmd(outputPrefix string, cmd *exec.Cmd) error {
	or, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	er, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	stream := func(r io.Reader) {
		defer wg.Done()

		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				fmt.Printf("%s │ %s\n", outputPrefix, strings.TrimRight(line, " \n\t"))
			}

			if err != nil {
				return
			}
		}
	}

	wg.Add(2)
	go stream(or)
	go stream(er)

	err = cmd.Start()
	if err != nil {
		return err
	}

	wg.Wait()

	return cmd.Wait()
}

func (t *ToolInstall) writeReceipt(d *tool.Descriptor, prefix, sum string) error {
	rec := &data.InstallReceipt{
		Module:      d.ModuleName(),
		Version:     d.Version,
		Product:     d.Product.Name,
		Target:      d.Target,
		Archive:     d.Archive,
		Sum:         sum,
		InstalledAt: time.Now().UTC(),
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(prefix, data.ReceiptName), append(out, '\n'), 0644)
}
