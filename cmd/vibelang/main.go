package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ycharfi09/vibelang/vibe"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// exitFailure signals a nonzero exit after diagnostics were already
// printed.
var exitFailure = errors.New("")

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "lex":
		return lexCommand(args[2:])
	case "parse":
		return parseCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "verify":
		return verifyCommand(args[2:])
	case "optimize":
		return optimizeCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "compile":
		return compileCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func usageError() error {
	printUsage()
	return exitFailure
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `vibelang - the VibeLang compiler toolchain

Usage:
  vibelang lex <file.vbl>        dump the token stream
  vibelang parse <file.vbl>      print an AST summary
  vibelang check <file.vbl>      type-check
  vibelang verify <file.vbl>     verify contracts
  vibelang optimize <file.vbl>   optimize and print canonical source
  vibelang fmt [flags] <path>    format source files
  vibelang compile [flags] <file.vbl>  emit the target program
  vibelang repl                  interactive pipeline inspector

Common flags:
  -level none|runtime|hybrid|full   verification level (default hybrid)
  -timeout-ms <n>                   oracle budget in milliseconds
  -indent <n>                       formatter indent width (default 2)`)
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func singleFileArg(fs *flag.FlagSet, name string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("vibelang %s: exactly one source file required", name)
	}
	return fs.Arg(0), nil
}

func configFlags(fs *flag.FlagSet) (level *string, timeoutMS *int, indent *int) {
	level = fs.String("level", string(vibe.LevelHybrid), "verification level")
	timeoutMS = fs.Int("timeout-ms", 1000, "oracle budget in milliseconds")
	indent = fs.Int("indent", 2, "formatter indent width")
	return
}

func buildConfig(level string, timeoutMS, indent int) (vibe.Config, error) {
	parsed, err := vibe.ParseLevel(level)
	if err != nil {
		return vibe.Config{}, err
	}
	cfg := vibe.DefaultConfig()
	cfg.Level = parsed
	cfg.VerifyTimeout = time.Duration(timeoutMS) * time.Millisecond
	cfg.IndentWidth = indent
	return cfg, nil
}

func printDiagnostics(source string, diags []vibe.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, vibe.RenderDiagnostic(source, d))
	}
}

// ------------------------------------------------------------------
// Subcommands
// ------------------------------------------------------------------

func lexCommand(args []string) error {
	fs := flag.NewFlagSet("lex", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFileArg(fs, "lex")
	if err != nil {
		return err
	}
	source, err := readSource(path)
	if err != nil {
		return err
	}

	tokens, diags := vibe.Lex(source)
	for _, tok := range tokens {
		if tok.Indent > 0 {
			fmt.Printf("%d:%d  %-12s depth=%d\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Indent)
			continue
		}
		fmt.Printf("%d:%d  %-12s %q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
	}
	if len(diags) > 0 {
		printDiagnostics(source, diags)
		return exitFailure
	}
	return nil
}

func parseCommand(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFileArg(fs, "parse")
	if err != nil {
		return err
	}
	source, err := readSource(path)
	if err != nil {
		return err
	}

	program, diags := vibe.Parse(source)
	if len(diags) > 0 {
		printDiagnostics(source, diags)
		return exitFailure
	}

	fmt.Printf("Imports: %d\n", len(program.Imports))
	for _, imp := range program.Imports {
		fmt.Printf("  - %s\n", imp.Path)
	}
	fmt.Printf("Declarations: %d\n", len(program.Decls))
	for _, decl := range program.Decls {
		switch decl := decl.(type) {
		case *vibe.TypeDecl:
			fmt.Printf("  type %s (%d invariants)\n", decl.Name, len(decl.Invariants))
		case *vibe.FuncDecl:
			fmt.Printf("  define %s (%d params, %d expect, %d ensure)\n",
				decl.Name, len(decl.Params), len(decl.Preconditions), len(decl.Postconditions))
		}
	}
	return nil
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFileArg(fs, "check")
	if err != nil {
		return err
	}
	source, err := readSource(path)
	if err != nil {
		return err
	}

	program, diags := vibe.Parse(source)
	if len(diags) > 0 {
		printDiagnostics(source, diags)
		return exitFailure
	}
	_, diags = vibe.Check(program)
	if len(diags) > 0 {
		printDiagnostics(source, diags)
		fmt.Fprintf(os.Stderr, "\n%d type error(s) found.\n", len(diags))
		return exitFailure
	}
	fmt.Println("Type check passed.")
	return nil
}

func verifyCommand(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	level, timeoutMS, indent := configFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFileArg(fs, "verify")
	if err != nil {
		return err
	}
	cfg, err := buildConfig(*level, *timeoutMS, *indent)
	if err != nil {
		return err
	}
	source, err := readSource(path)
	if err != nil {
		return err
	}

	program, diags := vibe.Parse(source)
	if len(diags) > 0 {
		printDiagnostics(source, diags)
		return exitFailure
	}

	report, diags := vibe.Verify(program, cfg)
	for _, res := range report.Results {
		icon := "?"
		switch res.Status {
		case vibe.StatusProven:
			icon = "✓"
		case vibe.StatusViolated:
			icon = "✗"
		}
		fmt.Printf("  [%s] %s: %s at %d:%d - %s\n",
			icon, res.Name, res.ContractKind, res.Pos.Line, res.Pos.Column, res.Message)
	}
	proven, runtime, violated := report.Counts()
	fmt.Printf("\nVerification: %d proven, %d runtime, %d violated\n", proven, runtime, violated)

	if len(diags) > 0 {
		printDiagnostics(source, diags)
		return exitFailure
	}
	return nil
}

func optimizeCommand(args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	indent := fs.Int("indent", 2, "formatter indent width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFileArg(fs, "optimize")
	if err != nil {
		return err
	}
	source, err := readSource(path)
	if err != nil {
		return err
	}

	program, diags := vibe.Parse(source)
	if len(diags) > 0 {
		printDiagnostics(source, diags)
		return exitFailure
	}

	optimized, rewrites := vibe.Optimize(program)
	fmt.Print(vibe.NewFormatter(*indent).Format(optimized))
	fmt.Fprintf(os.Stderr, "# %d optimization(s) applied\n", rewrites)
	return nil
}

func compileCommand(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	level, timeoutMS, indent := configFlags(fs)
	output := fs.String("o", "", "output file path")
	watch := fs.Bool("watch", false, "recompile when the source file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleFileArg(fs, "compile")
	if err != nil {
		return err
	}
	cfg, err := buildConfig(*level, *timeoutMS, *indent)
	if err != nil {
		return err
	}

	compileOnce := func() error {
		source, err := readSource(path)
		if err != nil {
			return err
		}
		result := vibe.Run(source, cfg)
		if result.HasErrors() {
			printDiagnostics(source, result.Diagnostics)
			return exitFailure
		}
		if *output != "" {
			if err := os.WriteFile(*output, []byte(result.Output), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", *output, err)
			}
			fmt.Printf("Compiled to %s\n", *output)
			return nil
		}
		fmt.Print(result.Output)
		return nil
	}

	if *watch {
		return watchPaths([]string{path}, compileOnce)
	}
	return compileOnce()
}
