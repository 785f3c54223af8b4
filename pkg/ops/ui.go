package ops

import (
	"context"
	"fmt"

	"github.com/morikuni/aec"

	"github.com/AdaCore/lmod-manager/pkg/fileutils"
	"github.com/AdaCore/lmod-manager/pkg/humanize"
	"github.com/AdaCore/lmod-manager/pkg/tool"
)

type UI struct {
	// Plain disables the ANSI accents in user-facing output.
	Plain bool
}

func (u *UI) accent(s string, a aec.ANSI) string {
	if u.Plain {
		return s
	}

	return a.Apply(s)
}

func (u *UI) Module(name string) string {
	return u.accent(name, aec.Bold)
}

func (u *UI) Good(s string) string {
	return u.accent(s, aec.GreenF)
}

func (u *UI) Bad(s string) string {
	return u.accent(s, aec.RedF)
}

func (u *UI) Warn(s string) string {
	return u.accent(s, aec.YellowF)
}

func (u *UI) InstallPrologue(d *tool.Descriptor, prefix string) {
	fmt.Printf("Installing %s into %s\n", u.Module(d.String()), prefix)
}

func (u *UI) Download(url string) {
	fmt.Printf("Downloading %s\n", url)
}

func (u *UI) VerifiedSum(entity, sum string) {
	fmt.Printf("Verified %s (%s)\n", entity, sum)
}

func (u *UI) RecordedSum(entity, sum string) {
	fmt.Printf("Recorded %s (%s)\n", entity, sum)
}

func (u *UI) Extract(archive string) {
	fmt.Printf("Extracting %s\n", archive)
}

func (u *UI) RunInstaller(d *tool.Descriptor) {
	fmt.Printf("Running %s installer\n", u.Module(d.ModuleName()))
}

func (u *UI) Installed(d *tool.Descriptor, prefix, modulefile string) {
	fmt.Printf("%s %s installed at %s\n", u.Good("✓"), u.Module(d.String()), prefix)
	fmt.Printf("  module file %s\n", modulefile)
}

func (u *UI) RemovePrologue(d *tool.Descriptor, prefix string) {
	fmt.Printf("Removing %s from %s\n", u.Module(d.String()), prefix)
}

func (u *UI) Removed(d *tool.Descriptor, rm fileutils.Removed) {
	fmt.Printf("%s %s removed (%d entries, %s recovered)\n",
		u.Good("✓"), u.Module(d.String()), rm.Entries, humanize.IEC(rm.Bytes))
}

func (u *UI) WaitingForLock(path string, pid int) {
	if pid > 0 {
		fmt.Printf("Waiting for lock %s (held by pid %d)\n", path, pid)
		return
	}

	fmt.Printf("Waiting for lock %s\n", path)
}

type uiMarker struct{}

func GetUI(ctx context.Context) *UI {
	v := ctx.Value(uiMarker{})
	if v == nil {
		return &UI{}
	}

	return v.(*UI)
}

func WithUI(ctx context.Context, ui *UI) context.Context {
	return context.WithValue(ctx, uiMarker{}, ui)
}
