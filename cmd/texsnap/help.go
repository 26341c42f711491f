package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texsnap <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render a LaTeX snippet to PNG")
	fmt.Fprintln(w, "  batch      Render every LaTeX fence of a Markdown file")
	fmt.Fprintln(w, "  doctor     Check the TeX and image toolchain")
	fmt.Fprintln(w, "  serve      Serve the render API over HTTP")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'texsnap help <command>' for details on a specific command.")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texsnap render [file.tex | -] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render a LaTeX snippet body to PNG.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -e, --expr <s>            Snippet body given inline")
	fmt.Fprintln(w, "  -o, --output <path>       Output PNG (default: input name, or texsnap.png)")
	fmt.Fprintln(w, "      --json                Print the JSON response envelope")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Document:")
	fmt.Fprintln(w, "      --preamble <path>     File with extra preamble lines")
	fmt.Fprintln(w, "      --bib <path>          BibTeX entries")
	fmt.Fprintln(w, "      --engine <s>          Bibliography engine: legacy, modern")
	fmt.Fprintln(w, "      --passes <n>          Compiler passes (1-5)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Image:")
	fmt.Fprintln(w, "      --dpi <n>             Resolution (36-1200)")
	fmt.Fprintln(w, "      --no-crop             Keep the full page")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Diagnostics:")
	fmt.Fprintln(w, "      --hide-warnings       Strip warnings from the compiler log")
	fmt.Fprintln(w, "      --show-source         Show the failing source lines")
	printCommonUsage(w)
}

// printBatchUsage prints usage for the batch command.
func printBatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texsnap batch <notes.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render every ```latex or ```tex fence of a Markdown file.")
	fmt.Fprintln(w, "Fence attributes passes=<n> and engine=<legacy|modern> apply per snippet.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: next to the input)")
	fmt.Fprintln(w, "      --html <path>         Write an HTML preview with the images inlined")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent renders (0 = auto)")
	fmt.Fprintln(w, "      --dpi <n>             Resolution (36-1200)")
	fmt.Fprintln(w, "      --no-crop             Keep full pages")
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texsnap doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the TeX and image tools are installed.")
	fmt.Fprintln(w, "Exits with status 4 when renders cannot succeed.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json                Print the report as JSON")
	printCommonUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: texsnap serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST /api/compile, GET /api/readiness, GET /api/health and GET /metrics.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --addr <host:port>    Listen address (default: 127.0.0.1:5000)")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent renders (0 = auto)")
	printCommonUsage(w)
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and full compiler output")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "batch":
		printBatchUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: texsnap version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: texsnap help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
