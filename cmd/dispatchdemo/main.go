package main

import (
	"fmt"
	"os"

	"dispatchcore/diag"
	"dispatchcore/dispatch"
	"dispatchcore/fixture"
	"dispatchcore/types"

	"github.com/mattn/go-isatty"
)

const cliToolVersion = "dispatchdemo 0.0.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	default:
		return runDispatch(args[0])
	}
}

func runDispatch(path string) int {
	f, err := fixture.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load fixture: %v\n", err)
		return 1
	}

	table, opts, callArgs, err := f.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build fixture: %v\n", err)
		return 1
	}

	result := dispatch.Dispatch(table, opts, callArgs)

	colorize := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	fmt.Fprintf(os.Stdout, "return type: %s\n", types.Name(result.ReturnType))
	printComponent(os.Stdout, "main", result.Main, colorize)
	if result.Secondary != nil {
		fmt.Fprintf(os.Stdout, "secondary kind: %s\n", result.SecondaryKind)
		printComponent(os.Stdout, "secondary", *result.Secondary, colorize)
	}

	if result.Main.Errors.HasErrors() {
		return 1
	}
	if result.Secondary != nil && result.Secondary.Errors.HasErrors() {
		return 1
	}
	return 0
}

func printComponent(w *os.File, label string, c dispatch.DispatchComponent, colorize bool) {
	methodName := "<unresolved>"
	if c.Method != nil {
		methodName = c.Method.Name
	}
	fmt.Fprintf(w, "%s: receiver=%s method=%s\n", label, types.Name(c.Receiver), methodName)
	if c.Errors == nil {
		return
	}
	for _, d := range c.Errors.Items() {
		fmt.Fprintln(w, formatDiagnostic(d, colorize))
		for _, note := range d.Notes {
			fmt.Fprintf(w, "  note: %s\n", note)
		}
		for _, a := range d.Autocorrect {
			fmt.Fprintf(w, "  autocorrect: %s\n", a.Description)
		}
	}
}

func formatDiagnostic(d diag.Diagnostic, colorize bool) string {
	if !colorize {
		return fmt.Sprintf("  [%s] %s: %s", d.Severity, d.Code, d.Header)
	}
	const (
		red    = "\x1b[31m"
		yellow = "\x1b[33m"
		reset  = "\x1b[0m"
	)
	color := red
	if d.Severity == diag.SeverityInfo {
		color = yellow
	}
	return fmt.Sprintf("  %s[%s] %s: %s%s", color, d.Severity, d.Code, d.Header, reset)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  dispatchdemo <fixture.dispatch.yaml>")
	fmt.Fprintln(os.Stderr, "  dispatchdemo --version")
}
