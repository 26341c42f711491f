// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-texsnap/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// installPackages maps a tool to the Debian package shipping it.
var installPackages = map[string]string{
	"pdflatex": "texlive-latex-base",
	"biber":    "biber",
	"bibtex":   "texlive-binaries",
	"pdftoppm": "poppler-utils",
	"convert":  "imagemagick",
	"magick":   "imagemagick",
	"pdfcrop":  "texlive-extra-utils",
}

// ToolEnvVar returns the environment variable that pins tool to an executable.
func ToolEnvVar(tool string) string {
	return "TEXSNAP_TOOL_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(tool))
}

// Packages returns the Debian packages shipping tools, without duplicates.
// Unknown tools are skipped.
func Packages(tools []string) []string {
	var pkgs []string
	seen := map[string]bool{}
	for _, tool := range tools {
		if pkg, ok := installPackages[tool]; ok && !seen[pkg] {
			seen[pkg] = true
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}

// ForMissingTools returns hints for tools that could not be found.
// Suggests packages inside containers and the per-tool override variable.
func ForMissingTools(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	var hints []string

	if IsInContainer() {
		if pkgs := Packages(missing); len(pkgs) > 0 {
			hints = append(hints, "apt-get install "+strings.Join(pkgs, " "))
		}
	}

	for _, tool := range missing {
		if os.Getenv(ToolEnvVar(tool)) == "" {
			hints = append(hints, "set "+ToolEnvVar(tool)+" to use a custom "+tool)
			break
		}
	}
	hints = append(hints, "run 'texsnap doctor' to check the toolchain")

	return formatHints(hints)
}

// ForTimeout returns a hint about raising tool timeouts.
func ForTimeout() string {
	return format("raise timeouts.compile or timeouts.convert in the config file")
}

// ForCompilationFailure returns a hint pointing at the source excerpt.
func ForCompilationFailure() string {
	return format("use --show-source to see the failing lines")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/texsnap/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepath.ToSlash(p), "/texsnap/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
