package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"

	"github.com/AdaCore/lmod-manager/pkg/cmd"
	"github.com/AdaCore/lmod-manager/pkg/config"
	"github.com/AdaCore/lmod-manager/pkg/humanize"
	"github.com/AdaCore/lmod-manager/pkg/lmod"
	"github.com/AdaCore/lmod-manager/pkg/ops"
	"github.com/AdaCore/lmod-manager/pkg/sumfile"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

func main() {
	c := cli.NewCLI("lmod-manager", "0.2.0")
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"install": func() (cli.Command, error) {
			return cmd.New("install", "install vendor archives and register them with Lmod", installF), nil
		},
		"uninstall": func() (cli.Command, error) {
			return cmd.New("uninstall", "remove installed tools and their module files", uninstallF), nil
		},
		"list": func() (cli.Command, error) {
			return cmd.New("list", "list managed tools and their state", listF), nil
		},
		"check": func() (cli.Command, error) {
			return cmd.New("check", "verify module files against the installations", checkF), nil
		},
		"sum": func() (cli.Command, error) {
			return cmd.New("sum", "record archive checksums for later verification", sumF), nil
		},
		"setup": func() (cli.Command, error) {
			return cmd.New("setup", "show the effective configuration", setupF), nil
		},
		"debug": func() (cli.Command, error) {
			return cmd.New("debug", "inspect names, paths, and products", debugF), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

func newLogger(debug, trace bool) hclog.Logger {
	level := hclog.Info

	switch {
	case trace:
		level = hclog.Trace
	case debug:
		level = hclog.Debug
	}

	L := hclog.New(&hclog.LoggerOptions{
		Name:  "lmod-manager",
		Level: level,
	})

	hclog.SetDefault(L)

	return L
}

func newEnv(cfg *config.Config, installDir, modulesDir string) *ops.InstallEnv {
	ienv := ops.NewInstallEnv(cfg)

	if installDir != "" {
		ienv.InstallDir = installDir
	}

	if modulesDir != "" {
		ienv.ModulesDir = modulesDir
	}

	return ienv
}

// loadSums finds the checksum list covering an archive. An explicit
// --sums flag wins; otherwise a local archive picks up a .sums file
// sitting next to it, and remote archives go unverified.
func loadSums(flagPath, archive string) (*sumfile.Sumfile, error) {
	if flagPath != "" {
		return sumfile.LoadFile(flagPath)
	}

	if u, err := url.Parse(archive); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return nil, nil
	}

	if _, err := os.Stat(archive + ".sums"); err != nil {
		return nil, nil
	}

	return sumfile.LoadFile(archive + ".sums")
}

func installF(ctx context.Context, opts struct {
	InstallDir  string `short:"i" long:"install-dir" description:"install tools under this directory instead of the configured root"`
	ModulesDir  string `short:"l" long:"modules-dir" description:"write Lmod module files under this directory"`
	Sums        string `long:"sums" description:"checksum list the archives must match"`
	KeepScratch bool   `long:"keep-scratch" description:"keep the scratch extraction directory around afterward"`
	Explain     bool   `short:"E" long:"explain" description:"print what would be installed without doing it"`
	Debug       bool   `long:"debug" description:"enable debug logging"`
	Trace       bool   `long:"trace" description:"enable trace logging"`
	Args        struct {
		Archives []string `positional-arg-name:"archive" required:"1"`
	} `positional-args:"yes" required:"yes"`
}) error {
	L := newLogger(opts.Debug, opts.Trace)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ienv := newEnv(cfg, opts.InstallDir, opts.ModulesDir)
	ienv.KeepScratch = opts.KeepScratch
	ienv.Explain = opts.Explain

	for _, archive := range opts.Args.Archives {
		d, err := tool.FromArchive(archive)
		if err != nil {
			return err
		}

		sums, err := loadSums(opts.Sums, archive)
		if err != nil {
			return err
		}

		var ti ops.ToolInstall
		ti.SetLogger(L)

		if err := ti.Install(ctx, ienv, d, archive, sums); err != nil {
			return err
		}
	}

	return nil
}

func uninstallF(ctx context.Context, opts struct {
	InstallDir string `short:"i" long:"install-dir" description:"remove tools from this directory instead of the configured root"`
	ModulesDir string `short:"l" long:"modules-dir" description:"remove Lmod module files from this directory"`
	Debug      bool   `long:"debug" description:"enable debug logging"`
	Trace      bool   `long:"trace" description:"enable trace logging"`
	Args       struct {
		Modules []string `positional-arg-name:"module" required:"1"`
	} `positional-args:"yes" required:"yes"`
}) error {
	L := newLogger(opts.Debug, opts.Trace)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ienv := newEnv(cfg, opts.InstallDir, opts.ModulesDir)

	for _, module := range opts.Args.Modules {
		d, err := tool.FromModule(module)
		if err != nil {
			return err
		}

		var tu ops.ToolUninstall
		tu.SetLogger(L)

		if err := tu.Uninstall(ctx, ienv, d); err != nil {
			return err
		}
	}

	return nil
}

func listF(ctx context.Context, opts struct {
	InstallDir string `short:"i" long:"install-dir" description:"scan this directory instead of the configured root"`
	ModulesDir string `short:"l" long:"modules-dir" description:"scan Lmod module files under this directory"`
	Size       bool   `short:"s" long:"size" description:"measure each installation on disk"`
	Debug      bool   `long:"debug" description:"enable debug logging"`
	Trace      bool   `long:"trace" description:"enable trace logging"`
}) error {
	L := newLogger(opts.Debug, opts.Trace)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ienv := newEnv(cfg, opts.InstallDir, opts.ModulesDir)

	var ms ops.ModuleScan
	ms.SetLogger(L)

	mods, err := ms.Scan(ctx, ienv, opts.Size)
	if err != nil {
		return err
	}

	if len(mods) == 0 {
		fmt.Println("no modules installed")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 4, 2, 1, ' ', 0)

	if opts.Size {
		fmt.Fprintf(tw, "MODULE\tVERSION\tSTATUS\tSIZE\tPRODUCT\tINSTALLED\n")
	} else {
		fmt.Fprintf(tw, "MODULE\tVERSION\tSTATUS\tPRODUCT\tINSTALLED\n")
	}

	for _, sm := range mods {
		product, installed := "-", "-"

		if rec := sm.Receipt; rec != nil {
			product = rec.Product
			if rec.Target != "" {
				product += " (" + rec.Target + ")"
			}

			installed = rec.InstalledAt.Format("2006-01-02")
		}

		if opts.Size {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				sm.Name, sm.Version, sm.Status, humanize.IEC(sm.Size.Bytes), product, installed)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				sm.Name, sm.Version, sm.Status, product, installed)
		}
	}

	return tw.Flush()
}

func checkF(ctx context.Context, opts struct {
	InstallDir string `short:"i" long:"install-dir" description:"check against this directory instead of the configured root"`
	ModulesDir string `short:"l" long:"modules-dir" description:"check Lmod module files under this directory"`
	Export     bool   `long:"export" description:"print the module's environment as shell exports"`
	Debug      bool   `long:"debug" description:"enable debug logging"`
	Trace      bool   `long:"trace" description:"enable trace logging"`
	Args       struct {
		Modules []string `positional-arg-name:"module" required:"1"`
	} `positional-args:"yes" required:"yes"`
}) error {
	L := newLogger(opts.Debug, opts.Trace)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ienv := newEnv(cfg, opts.InstallDir, opts.ModulesDir)

	ui := ops.GetUI(ctx)

	var bad int

	for _, module := range opts.Args.Modules {
		d, err := tool.FromModule(module)
		if err != nil {
			return err
		}

		var mc ops.ModuleCheck
		mc.SetLogger(L)

		rep, err := mc.Check(ctx, ienv, d)
		if err != nil {
			return err
		}

		if opts.Export {
			for _, line := range rep.ExportLines() {
				fmt.Println(line)
			}

			continue
		}

		if rep.OK() {
			fmt.Printf("%s %s: %s puts %s on PATH\n",
				ui.Good("✓"), rep.Spec(), rep.Modulefile, rep.BinDir)
			continue
		}

		bad++

		fmt.Printf("%s %s:\n", ui.Bad("✗"), rep.Spec())

		for _, p := range rep.Problems {
			fmt.Printf("  - %s\n", p)
		}
	}

	if bad > 0 {
		return errors.Errorf("%d of %d modules failed their checks", bad, len(opts.Args.Modules))
	}

	return nil
}

func sumF(ctx context.Context, opts struct {
	Sums  string `long:"sums" required:"yes" description:"checksum list to create or update"`
	Algo  string `long:"algo" default:"b2" choice:"b2" choice:"sha256" description:"hash algorithm to record"`
	Debug bool   `long:"debug" description:"enable debug logging"`
	Trace bool   `long:"trace" description:"enable trace logging"`
	Args  struct {
		Archives []string `positional-arg-name:"archive" required:"1"`
	} `positional-args:"yes" required:"yes"`
}) error {
	L := newLogger(opts.Debug, opts.Trace)

	var as ops.ArchiveSum
	as.SetLogger(L)

	return as.Record(ctx, opts.Sums, opts.Algo, opts.Args.Archives)
}

func setupF(ctx context.Context, opts struct {
	Debug bool `long:"debug" description:"enable debug logging"`
	Trace bool `long:"trace" description:"enable trace logging"`
}) error {
	L := newLogger(opts.Debug, opts.Trace)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var s ops.Setup
	s.SetLogger(L)

	return s.Show(ctx, cfg)
}

func debugF(ctx context.Context, opts struct {
	Archive  string `short:"a" long:"archive" description:"parse an archive name and dump what it resolves to"`
	Module   string `short:"m" long:"module" description:"parse a module spec and dump what it resolves to"`
	Products bool   `long:"products" description:"list the supported products"`
	Trace    bool   `long:"trace" description:"enable trace logging"`
}) error {
	newLogger(true, opts.Trace)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ienv := ops.NewInstallEnv(cfg)

	switch {
	case opts.Archive != "":
		d, err := tool.FromArchive(opts.Archive)
		if err != nil {
			return err
		}

		spew.Dump(d)

		fmt.Printf("prefix:      %s\n", ienv.Prefix(d))
		fmt.Printf("module file: %s\n", lmod.Path(ienv.ModulesDir, d.ModuleName(), d.Version))
		fmt.Printf("extracted:   %s\n", d.ExtractedDir())
	case opts.Module != "":
		d, err := tool.FromModule(opts.Module)
		if err != nil {
			return err
		}

		spew.Dump(d)

		fmt.Printf("prefix:      %s\n", ienv.Prefix(d))
		fmt.Printf("module file: %s\n", lmod.Path(ienv.ModulesDir, d.ModuleName(), d.Version))
	case opts.Products:
		tw := tabwriter.NewWriter(os.Stdout, 4, 2, 1, ' ', 0)

		fmt.Fprintf(tw, "NAME\tARCHIVE PREFIX\tMARKER\tINSTALLER\n")

		for _, p := range tool.Products {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.ArchivePrefix, p.Marker, p.Style)
		}

		return tw.Flush()
	default:
		return errors.New("nothing to inspect, pass -a, -m, or --products")
	}

	return nil
}
