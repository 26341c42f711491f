package texdoc

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestAssemble - Ordering and modes
// ---------------------------------------------------------------------------

func TestAssemble_Order(t *testing.T) {
	t.Parallel()

	got := Assemble(`\documentclass{article}`, `\usepackage{tikz}`, `$E=mc^2$ \cite{k}`, ModernBibliography)

	order := []string{
		`\documentclass{article}`,
		`\usepackage{tikz}`,
		`\usepackage[style=numeric]{biblatex}`,
		`\addbibresource{references.bib}`,
		`\begin{document}`,
		`$E=mc^2$ \cite{k}`,
		`\printbibliography`,
		`\end{document}`,
	}
	pos := -1
	for _, part := range order {
		i := strings.Index(got, part)
		if i < 0 {
			t.Fatalf("missing %q in:\n%s", part, got)
		}
		if i <= pos {
			t.Errorf("%q out of order in:\n%s", part, got)
		}
		pos = i
	}
}

func TestAssemble_Modes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mode    Bibliography
		want    []string
		notWant []string
	}{
		{
			name:    "none",
			mode:    NoBibliography,
			notWant: []string{"natbib", "biblatex", `\bibliography`, `\printbibliography`},
		},
		{
			name:    "legacy",
			mode:    LegacyBibliography,
			want:    []string{`\usepackage{natbib}`, `\bibliographystyle{plainnat}`, `\bibliography{references}`},
			notWant: []string{"biblatex", `\printbibliography`},
		},
		{
			name:    "modern",
			mode:    ModernBibliography,
			want:    []string{`\usepackage[style=numeric]{biblatex}`, `\addbibresource{references.bib}`, `\printbibliography`},
			notWant: []string{"natbib", `\bibliography{`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Assemble(BasePreamble, "", "x", tt.mode)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q", w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("unexpected %q", nw)
				}
			}
		})
	}
}

func TestAssemble_DirectiveAfterBody(t *testing.T) {
	t.Parallel()

	got := Assemble(BasePreamble, "", "BODY", LegacyBibliography)
	if strings.Index(got, `\bibliography{references}`) < strings.Index(got, "BODY") {
		t.Error("bibliography directive precedes body")
	}
	if strings.Index(got, `\usepackage{natbib}`) > strings.Index(got, `\begin{document}`) {
		t.Error("natbib loaded after \\begin{document}")
	}
}

func TestAssemble_LegacyStyleBeforeBibliography(t *testing.T) {
	t.Parallel()

	got := Assemble(BasePreamble, "", "BODY", LegacyBibliography)
	style := strings.Index(got, `\bibliographystyle{plainnat}`)
	bib := strings.Index(got, `\bibliography{references}`)
	if style < 0 || bib < 0 {
		t.Fatalf("legacy directives missing:\n%s", got)
	}
	if style > bib {
		t.Error("style must precede \\bibliography")
	}
	if strings.Contains(Assemble(BasePreamble, "", "BODY", ModernBibliography), `\bibliographystyle`) {
		t.Error("modern mode emitted a bibtex style")
	}
}

func TestAssemble_NoValidation(t *testing.T) {
	t.Parallel()

	body := `\end{document} \undefinedmacro {`
	got := Assemble("", "", body, NoBibliography)
	if !strings.Contains(got, body) {
		t.Error("body altered")
	}
	if !strings.HasSuffix(got, "\\end{document}\n") {
		t.Errorf("document does not end with \\end{document}: %q", got)
	}
}

func TestAssemble_EmptyExtraAddsNothing(t *testing.T) {
	t.Parallel()

	with := Assemble("BASE", "", "x", NoBibliography)
	want := "BASE\n\\begin{document}\nx\n\\end{document}\n"
	if with != want {
		t.Errorf("Assemble() = %q, want %q", with, want)
	}
}

func TestBasePreamble(t *testing.T) {
	t.Parallel()

	for _, pkg := range []string{"amsmath", "amssymb", "siunitx", "booktabs", "graphicx", "hyperref", "microtype"} {
		if !strings.Contains(BasePreamble, pkg) {
			t.Errorf("BasePreamble missing %s", pkg)
		}
	}
	if !strings.HasPrefix(BasePreamble, `\documentclass[11pt]{article}`) {
		t.Error("BasePreamble must start with the document class")
	}
}

func TestBibliography_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		b    Bibliography
		want string
	}{
		{NoBibliography, "none"},
		{LegacyBibliography, "legacy"},
		{ModernBibliography, "modern"},
		{Bibliography(9), "Bibliography(9)"},
	}
	for _, tt := range tests {
		if got := tt.b.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
