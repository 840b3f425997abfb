package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ycharfi09/vibelang/vibe"
)

func fmtCommand(args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	write := fs.Bool("w", false, "write result to source files instead of stdout")
	check := fs.Bool("check", false, "fail if any source file needs formatting")
	indent := fs.Int("indent", 2, "indent width")
	watch := fs.Bool("watch", false, "reformat when source files change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets := fs.Args()
	if len(targets) == 0 {
		return errors.New("vibelang fmt: path required")
	}

	formatOnce := func() error {
		files, err := collectVibeFiles(targets)
		if err != nil {
			return err
		}

		changedCount := 0
		for _, path := range files {
			originalBytes, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			original := string(originalBytes)

			program, diags := vibe.Parse(original)
			if len(diags) > 0 {
				printDiagnostics(original, diags)
				return exitFailure
			}
			formatted := vibe.NewFormatter(*indent).Format(program)
			changed := formatted != original
			if changed {
				changedCount++
			}

			switch {
			case *write && changed:
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("stat %s: %w", path, err)
				}
				if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
			case !*write && !*check:
				fmt.Print(formatted)
			}
		}

		if *check && changedCount > 0 {
			return fmt.Errorf("vibelang fmt: %d file(s) need formatting", changedCount)
		}
		return nil
	}

	if *watch {
		return watchPaths(targets, formatOnce)
	}
	return formatOnce()
}

func collectVibeFiles(targets []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	addFile := func(path string) {
		if filepath.Ext(path) != ".vbl" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, path)
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}
		if !info.IsDir() {
			addFile(target)
			continue
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				addFile(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}
