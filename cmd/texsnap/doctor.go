package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string          `json:"status"`
	Ready    bool            `json:"ready"`
	Tools    map[string]bool `json:"tools"`
	Env      envInfo         `json:"environment"`
	System   systemInfo      `json:"system"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	ScratchRoot         string `json:"scratch_root"`
	ScratchRootWritable bool   `json:"scratch_root_writable"`
}

// runDoctorCmd reports toolchain readiness. It returns ErrNotReady when
// renders cannot succeed.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	s, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	if err := s.finish(env.Stderr); err != nil {
		return err
	}
	r, err := s.renderer(env)
	if err != nil {
		return err
	}

	result := runDoctor(ctx, r, s.cfg.Toolset(), env)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if !result.Ready {
		return ErrNotReady
	}
	return nil
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, r Renderer, ts texsnap.Toolset, env *Environment) *doctorResult {
	report := r.Readiness(ctx)
	result := &doctorResult{
		Status: statusReady,
		Ready:  report.Ready,
		Tools:  report.Tools,
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	checkTools(result, report, ts)
	checkScratchRoot(result, r.ScratchRoot())

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}
	return result
}

// checkTools turns missing required tools into errors and missing optional
// ones into warnings.
func checkTools(result *doctorResult, report *texsnap.Readiness, ts texsnap.Toolset) {
	ts = ts.WithDefaults()
	missing := report.Missing(ts)
	if len(missing) > 0 {
		msg := "Required tools not found: " + strings.Join(missing, ", ")
		if pkgs := hints.Packages(missing); len(pkgs) > 0 {
			msg += " (Debian: apt-get install " + strings.Join(pkgs, " ") + ")"
		}
		result.Errors = append(result.Errors, msg)
	}
	for _, tool := range []string{ts.ModernBibliography, ts.LegacyBibliography, ts.Cropper} {
		if !report.Tools[tool] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s not found; %s", tool, optionalToolImpact(tool, ts)))
		}
	}
}

func optionalToolImpact(tool string, ts texsnap.Toolset) string {
	switch tool {
	case ts.Cropper:
		return "images are trimmed without it"
	case ts.ModernBibliography:
		return "modern bibliographies will not resolve"
	}
	return "legacy bibliographies will not resolve"
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("TEXSNAP_CONTAINER") == "1" {
		return true, "TEXSNAP_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkScratchRoot verifies workspaces can be created.
func checkScratchRoot(result *doctorResult, root string) {
	result.System.ScratchRoot = root
	testFile := filepath.Join(root, ".texsnap-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Scratch root not writable: %s", root))
		return
	}
	_ = os.Remove(testFile)
	result.System.ScratchRootWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "texsnap doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Tools")
	names := make([]string, 0, len(r.Tools))
	for name := range r.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if r.Tools[name] {
			fmt.Fprintf(w, "  [OK] %s\n", name)
		} else {
			fmt.Fprintf(w, "  [MISSING] %s\n", name)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.ScratchRootWritable {
		fmt.Fprintf(w, "  [OK] Scratch root: %s\n", r.System.ScratchRoot)
	} else {
		fmt.Fprintf(w, "  [ERROR] Scratch root: %s not writable\n", r.System.ScratchRoot)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to render")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
