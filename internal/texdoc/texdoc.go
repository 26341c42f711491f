// Package texdoc assembles a complete LaTeX document from its parts.
//
// Assembly is pure concatenation. Nothing is validated or escaped: a body
// that does not typeset is reported by the compiler, not here.
package texdoc

import (
	"fmt"
	"strings"
)

// Bibliography selects how citations are processed.
type Bibliography int

const (
	// NoBibliography emits no bibliography packages or directives.
	NoBibliography Bibliography = iota
	// LegacyBibliography uses natbib with bibtex.
	LegacyBibliography
	// ModernBibliography uses biblatex with biber.
	ModernBibliography
)

// String returns the mode name used in configuration and logs.
func (b Bibliography) String() string {
	switch b {
	case NoBibliography:
		return "none"
	case LegacyBibliography:
		return "legacy"
	case ModernBibliography:
		return "modern"
	}
	return fmt.Sprintf("Bibliography(%d)", int(b))
}

// BasePreamble is the document class and package set every snippet gets.
// The page style is empty so no page number lands in the rendered image.
const BasePreamble = `\documentclass[11pt]{article}
\usepackage[margin=0.5in]{geometry}
\usepackage{amsmath}
\usepackage{amsfonts}
\usepackage{amssymb}
\usepackage{siunitx}
\usepackage{booktabs}
\usepackage{graphicx}
\usepackage{float}
\usepackage[hidelinks]{hyperref}
\usepackage{microtype}
\pagestyle{empty}`

// Bibliography database name, without extension, as referenced by directives.
const bibliographyName = "references"

// Packages returns the preamble lines mode needs.
func (b Bibliography) Packages() []string {
	switch b {
	case LegacyBibliography:
		return []string{`\usepackage{natbib}`}
	case ModernBibliography:
		return []string{
			`\usepackage[style=numeric]{biblatex}`,
			`\addbibresource{` + bibliographyName + `.bib}`,
		}
	}
	return nil
}

// Directives returns the lines that print the bibliography, placed after the body.
// bibtex needs a style; without one it stops at the first \citation.
func (b Bibliography) Directives() []string {
	switch b {
	case LegacyBibliography:
		return []string{
			`\bibliographystyle{plainnat}`,
			`\bibliography{` + bibliographyName + `}`,
		}
	case ModernBibliography:
		return []string{`\printbibliography`}
	}
	return nil
}

// Assemble joins base and extra preamble, the mode's packages, the body and
// the mode's directives into one document. The legacy mode emits two
// directives, \bibliographystyle{plainnat} then \bibliography{references},
// since bibtex needs a style; the modern mode emits \printbibliography only.
func Assemble(base, extra, body string, mode Bibliography) string {
	var b strings.Builder
	b.Grow(len(base) + len(extra) + len(body) + 256)

	writeLine(&b, base)
	if extra != "" {
		writeLine(&b, extra)
	}
	for _, line := range mode.Packages() {
		writeLine(&b, line)
	}
	writeLine(&b, `\begin{document}`)
	writeLine(&b, body)
	for _, line := range mode.Directives() {
		writeLine(&b, line)
	}
	writeLine(&b, `\end{document}`)
	return b.String()
}

func writeLine(b *strings.Builder, s string) {
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}
