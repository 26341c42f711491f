// Package texlog reads compiler output: error diagnostics, warning
// filtering and highlighted source excerpts.
package texlog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// maxDiagnostics caps Parse; pdflatex in nonstopmode keeps going after
// the first error and later ones are usually consequences of it.
const maxDiagnostics = 10

var (
	lineRef     = regexp.MustCompile(`^l\.(\d+)\s?(.*)$`)
	warningLine = regexp.MustCompile(`^(LaTeX( Font)? Warning|(Package|Class) \S+ Warning|(Overfull|Underfull) \\[hv]box)`)
	warningCont = regexp.MustCompile(`^\(\S+\)\s`)
)

// Diagnostic is one "! ..." error from the compiler output.
// Line is zero when the log gives no "l.<n>" reference.
type Diagnostic struct {
	Message string
	Line    int
	Context string
}

// String formats the diagnostic as "line N: message".
func (d Diagnostic) String() string {
	if d.Line == 0 {
		return d.Message
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// Parse extracts error diagnostics from compiler output.
func Parse(log string) []Diagnostic {
	var diags []Diagnostic
	var cur *Diagnostic

	sc := bufio.NewScanner(strings.NewReader(log))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if msg, ok := strings.CutPrefix(line, "! "); ok {
			if len(diags) == maxDiagnostics {
				break
			}
			diags = append(diags, Diagnostic{Message: strings.TrimSpace(msg)})
			cur = &diags[len(diags)-1]
			continue
		}
		if cur == nil || cur.Line != 0 {
			continue
		}
		if m := lineRef.FindStringSubmatch(line); m != nil {
			cur.Line, _ = strconv.Atoi(m[1])
			cur.Context = strings.TrimSpace(m[2])
		}
	}
	return diags
}

// StripWarnings removes warning messages and their continuation lines,
// keeping errors and everything else.
func StripWarnings(log string) string {
	lines := strings.SplitAfter(log, "\n")
	out := make([]string, 0, len(lines))
	inWarning := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case warningLine.MatchString(trimmed):
			inWarning = true
			continue
		case inWarning && (warningCont.MatchString(trimmed) || strings.HasPrefix(strings.TrimSpace(trimmed), "[]")):
			continue
		}
		inWarning = false
		out = append(out, line)
	}
	return strings.Join(out, "")
}

// ExcerptOptions control Excerpt output.
type ExcerptOptions struct {
	Radius int    // lines shown on each side of the target
	Color  bool   // ANSI colours via chroma's terminal256 formatter
	Style  string // chroma style name
}

// Excerpt writes the lines of source around line (1-based), numbered, with
// the target line marked by ">".
func Excerpt(w io.Writer, source string, line int, opts ExcerptOptions) error {
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")
	if line < 1 || line > len(lines) {
		return fmt.Errorf("line %d out of range 1..%d", line, len(lines))
	}
	if opts.Radius < 0 {
		opts.Radius = 0
	}
	formatter := "noop"
	if opts.Color {
		formatter = "terminal256"
	}
	style := opts.Style
	if style == "" {
		style = "monokai"
	}

	first := max(1, line-opts.Radius)
	last := min(len(lines), line+opts.Radius)
	width := len(strconv.Itoa(last))
	for n := first; n <= last; n++ {
		marker := " "
		if n == line {
			marker = ">"
		}
		if _, err := fmt.Fprintf(w, "%s %*d | ", marker, width, n); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, lines[n-1], "latex", formatter, style); err != nil {
			return fmt.Errorf("highlighting line %d: %w", n, err)
		}
		if _, err := io.WriteString(w, strings.TrimRight(buf.String(), "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}
