/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package archive implements spec.md §4.7's archive fan-out: for an APK
// or JAR, open the zip, classify each entry, and enqueue one
// internal/worker task per eligible unit -- one DEX class-def per task
// in Decompile mode's top-level set (or every class-def, unfiltered, in
// Smali mode), one .class file per task for a JAR. A bare .dex file (not
// inside a zip) gets the identical per-class-def fan-out without a zip
// layer, since spec.md §6 lists a standalone DEX as its own input kind.
package archive

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/classfile"
	"github.com/CrazyForks/garlic/internal/decompile"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/trace"
	"github.com/CrazyForks/garlic/internal/worker"
)

// Mode selects what each enqueued task renders.
type Mode int

const (
	// Decompile renders Java-like source, inlining inner/anonymous
	// classes into their declaring class's file.
	Decompile Mode = iota
	// Smali renders one .smali file per class-def, no inlining.
	Smali
)

// Run drives the whole fan-out for one already-opened archive: parse
// every .dex entry (APK) or decompile every .class entry (JAR), enqueue
// one task per eligible unit on pool, then Join before returning. outDir
// is the root decompiled/smali output is written under.
func Run(pool *worker.Pool, outDir string, r *zip.Reader, mode Mode) error {
	for _, f := range r.File {
		switch {
		case strings.HasSuffix(f.Name, ".dex"):
			if err := runDexEntry(pool, outDir, f, mode); err != nil {
				trace.Warningf("archive: %s: %v", f.Name, err)
			}
		case strings.HasSuffix(f.Name, ".class"):
			if err := runClassEntry(pool, outDir, f); err != nil {
				trace.Warningf("archive: %s: %v", f.Name, err)
			}
		default:
			trace.Finef("archive: skipping non-class entry %s", f.Name)
		}
	}

	pool.Join()
	return nil
}

func runDexEntry(pool *worker.Pool, outDir string, f *zip.File, mode Mode) error {
	buf, err := readZipEntry(f)
	if err != nil {
		return err
	}
	img, err := dex.Parse(buf)
	if err != nil {
		trace.Warningf("archive: %s: %v", f.Name, err)
		return nil
	}
	return RunDexImage(pool, outDir, img, mode)
}

// RunDexImage enqueues the per-class-def tasks for an already-parsed DEX
// image -- shared by the APK entry path above and by cmd/garlic's bare
// standalone-.dex input, which has no zip layer around it.
func RunDexImage(pool *worker.Pool, outDir string, img *dex.Image, mode Mode) error {
	tree, err := dex.BuildSourceTree(img)
	if err != nil {
		trace.Warningf("archive: %v", err)
		return nil
	}

	switch mode {
	case Decompile:
		for _, sf := range tree.TopLevel {
			sf := sf
			pool.Enqueue(func(a *arena.Arena) {
				decompileSourceFile(a, outDir, img, sf)
			})
		}
	case Smali:
		for _, sf := range tree.All {
			sf := sf
			pool.Enqueue(func(a *arena.Arena) {
				smaliClassDef(a, outDir, img, sf.Class)
			})
		}
	}
	return nil
}

func decompileSourceFile(a *arena.Arena, outDir string, img *dex.Image, sf *dex.SourceFile) {
	class, err := decompile.DexSourceFile(a, img, sf)
	if err != nil {
		trace.Warningf("decompile: %v", err)
		return
	}
	if _, err := decompile.WriteJavaSource(outDir, class); err != nil {
		trace.Warningf("decompile: %v", err)
	}
}

func smaliClassDef(a *arena.Arena, outDir string, img *dex.Image, cd *dex.ClassDef) {
	descriptor, err := cd.TypeName()
	if err != nil {
		trace.Warningf("smali: %v", err)
		return
	}
	text, err := decompile.DexClassSmali(a, img, cd)
	if err != nil {
		trace.Warningf("smali: %s: %v", descriptor, err)
		return
	}
	if _, err := decompile.WriteSmaliSource(outDir, descriptor, text); err != nil {
		trace.Warningf("smali: %v", err)
	}
}

func runClassEntry(pool *worker.Pool, outDir string, f *zip.File) error {
	buf, err := readZipEntry(f)
	if err != nil {
		return err
	}
	pool.Enqueue(func(a *arena.Arena) {
		cf, err := classfile.Parse(buf)
		if err != nil {
			trace.Warningf("archive: %s: %v", f.Name, err)
			return
		}
		class, err := decompile.ClassFile(a, cf)
		if err != nil {
			trace.Warningf("decompile: %s: %v", f.Name, err)
			return
		}
		if _, err := decompile.WriteJavaSource(outDir, class); err != nil {
			trace.Warningf("decompile: %v", err)
		}
	})
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &errs.IOError{Path: f.Name, Err: err}
	}
	defer rc.Close()
	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, &errs.IOError{Path: f.Name, Err: err}
	}
	return buf, nil
}
