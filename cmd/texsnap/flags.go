package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common       commonFlags
	expr         string
	output       string
	preamble     string
	bib          string
	engine       string
	passes       int
	dpi          int
	noCrop       bool
	hideWarnings bool
	json         bool
	showSource   bool
}

// batchFlags holds all flags for the batch command.
type batchFlags struct {
	common  commonFlags
	output  string
	html    string
	workers int
	dpi     int
	noCrop  bool
}

// doctorFlags holds all flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common  commonFlags
	addr    string
	workers int
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and full compiler output")
}

// newFlagSet returns a FlagSet that reports errors instead of exiting
// and prints usage to w.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, w io.Writer) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := newFlagSet("render", w, printRenderUsage)

	fs.StringVarP(&f.expr, "expr", "e", "", "snippet body given inline")
	fs.StringVarP(&f.output, "output", "o", "", "output PNG path")
	fs.StringVar(&f.preamble, "preamble", "", "file with extra preamble lines")
	fs.StringVar(&f.bib, "bib", "", "BibTeX file with bibliography entries")
	fs.StringVar(&f.engine, "engine", "", "bibliography engine: legacy, modern")
	fs.IntVar(&f.passes, "passes", 0, "compiler passes (1-5)")
	fs.IntVar(&f.dpi, "dpi", 0, "resolution in dots per inch")
	fs.BoolVar(&f.noCrop, "no-crop", false, "keep the full page")
	fs.BoolVar(&f.hideWarnings, "hide-warnings", false, "strip warnings from the compiler log")
	fs.BoolVar(&f.json, "json", false, "print the JSON response envelope")
	fs.BoolVar(&f.showSource, "show-source", false, "show the failing source lines")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// parseBatchFlags parses batch command flags and returns positional args.
func parseBatchFlags(args []string, w io.Writer) (*batchFlags, []string, error) {
	f := &batchFlags{}
	fs := newFlagSet("batch", w, printBatchUsage)

	fs.StringVarP(&f.output, "output", "o", "", "output directory for PNG files")
	fs.StringVar(&f.html, "html", "", "write an HTML preview to this path")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (0 = auto)")
	fs.IntVar(&f.dpi, "dpi", 0, "resolution in dots per inch")
	fs.BoolVar(&f.noCrop, "no-crop", false, "keep full pages")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, w io.Writer) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newFlagSet("doctor", w, printDoctorUsage)

	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, usageError(err)
	}
	if fs.NArg() > 0 {
		return nil, usageError(errUnexpectedArgs(fs.Args()))
	}
	return f, nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, w io.Writer) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", w, printServeUsage)

	fs.StringVar(&f.addr, "addr", "", "listen address (host:port)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (0 = auto)")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, usageError(err)
	}
	if fs.NArg() > 0 {
		return nil, usageError(errUnexpectedArgs(fs.Args()))
	}
	return f, nil
}
