/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// garlic is spec.md §6's thin CLI: classify one input path by its magic
// bytes, then dispatch to structural dump, single-class decompile, or
// archive/DEX fan-out, per the mode flags below.
package main

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/CrazyForks/garlic/internal/archive"
	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/classfile"
	"github.com/CrazyForks/garlic/internal/decompile"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/dump"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/globals"
	"github.com/CrazyForks/garlic/internal/magic"
	"github.com/CrazyForks/garlic/internal/worker"
)

func newApp() *cli.App {
	return &cli.App{
		Name:                   "garlic",
		Usage:                  "decompile Java class files, DEX files, and APK/JAR archives",
		UseShortOptionHandling: true,
		ArgsUsage:              "<path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "p", Usage: "dump mode: print structural info instead of decompiling"},
			&cli.BoolFlag{Name: "s", Usage: "Smali mode (valid for DEX and APK input)"},
			&cli.StringFlag{Name: "o", Usage: "output directory (default: sibling of input named <basename>_<ext>)"},
			&cli.IntFlag{Name: "t", Value: 4, Usage: "worker count (clamped: 0->4, <2->1, >16->16)"},
		},
		Action: run,
		OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
			return &usageError{msg: "garlic: " + err.Error()}
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, usage.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// usageError marks an error that should exit 2 (bad flags/args) rather
// than 1 (a rejected or unreadable input), per spec.md §6's exit-code
// table.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return &usageError{msg: "garlic: expected exactly one input path"}
	}
	path := c.Args().First()

	// -t is validated the same way for every input kind, even one a
	// single-task run (a lone .class file) will silently ignore --
	// SPEC_FULL.md §6's resolution of the worker-count Open Question.
	workers := worker.Clamp(c.Int("t"))

	g := globals.Init()
	g.StartingPath = path
	g.WorkerCount = workers

	data, err := os.ReadFile(path)
	if err != nil {
		return &errs.InputError{Path: path, Msg: err.Error()}
	}

	kind := magic.Identify(magic.ReadPrefix(data), path)
	if kind == magic.Unknown {
		return &errs.InputError{Path: path, Msg: "unrecognized input format"}
	}

	dumpMode := c.Bool("p")
	smaliMode := c.Bool("s")

	if dumpMode {
		return runDump(kind, path, data)
	}

	if smaliMode && (kind == magic.JavaClass || kind == magic.JAR) {
		return &errs.InputError{Path: path, Msg: "-s is only valid for a .dex or .apk file"}
	}

	outDir := c.String("o")
	if outDir == "" {
		outDir = defaultOutputDir(path, kind)
	}
	g.OutputDir = outDir

	switch kind {
	case magic.JavaClass:
		return runClassFile(outDir, data)
	case magic.DEX:
		return runDex(outDir, data, workers, smaliMode, g)
	case magic.APK, magic.JAR:
		return runZipArchive(outDir, data, workers, smaliMode, g)
	default:
		return &errs.InputError{Path: path, Msg: "unrecognized input format"}
	}
}

func defaultOutputDir(path string, kind magic.Kind) string {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, base+"_"+kind.String())
}

func runDump(kind magic.Kind, path string, data []byte) error {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	switch kind {
	case magic.JavaClass:
		cf, err := classfile.Parse(data)
		if err != nil {
			return err
		}
		report, err := dump.BuildClassFileReport(cf)
		if err != nil {
			return err
		}
		return dump.WriteReport(w, report)
	case magic.DEX:
		img, err := dex.Parse(data)
		if err != nil {
			return err
		}
		report, err := dump.BuildDexReport(img)
		if err != nil {
			return err
		}
		return dump.WriteReport(w, report)
	default:
		return &errs.InputError{Path: path, Msg: "-p is only valid for a .class or .dex file"}
	}
}

func runClassFile(outDir string, data []byte) error {
	cf, err := classfile.Parse(data)
	if err != nil {
		return err
	}
	a := arena.NewPool().NewArena()
	defer a.Release()
	class, err := decompile.ClassFile(a, cf)
	if err != nil {
		return err
	}
	_, err = decompile.WriteJavaSource(outDir, class)
	return err
}

func runDex(outDir string, data []byte, workers int, smaliMode bool, g *globals.Globals) error {
	img, err := dex.Parse(data)
	if err != nil {
		return err
	}

	pool := worker.New(workers, arena.NewPool(), g)
	pool.SetPrinter(func(s string) { fmt.Fprint(os.Stderr, s) })

	mode := archive.Decompile
	if smaliMode {
		mode = archive.Smali
	}
	if err := archive.RunDexImage(pool, outDir, img, mode); err != nil {
		return err
	}
	pool.Join()
	fmt.Fprintln(os.Stderr)
	return nil
}

func runZipArchive(outDir string, data []byte, workers int, smaliMode bool, g *globals.Globals) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &errs.FormatError{Section: "archive", Msg: err.Error()}
	}

	pool := worker.New(workers, arena.NewPool(), g)
	pool.SetPrinter(func(s string) { fmt.Fprint(os.Stderr, s) })

	mode := archive.Decompile
	if smaliMode {
		mode = archive.Smali
	}
	if err := archive.Run(pool, outDir, zr, mode); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)
	return nil
}
