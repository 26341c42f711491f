package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/config"
	"github.com/alnah/go-texsnap/internal/hints"
)

// Exit codes for texsnap CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0 // Successful render
	ExitGeneral     = 1 // General/unexpected error
	ExitUsage       = 2 // Invalid flags, config, or request
	ExitIO          = 3 // File not found, permission denied
	ExitToolchain   = 4 // Required tool missing
	ExitCompilation = 5 // LaTeX compilation failed or timed out
	ExitConversion  = 6 // PDF to PNG conversion failed or timed out
)

// Sentinel errors for CLI operations.
var (
	ErrUsage         = errors.New("invalid usage")
	ErrNoInput       = errors.New("no input specified")
	ErrTooManyInputs = errors.New("give either a file or --expr, not both")
	ErrReadInput     = errors.New("failed to read input")
	ErrWriteImage    = errors.New("failed to write image")
	ErrNoSnippets    = errors.New("no LaTeX fences found")
	ErrNotReady      = errors.New("toolchain not ready")
)

func usageError(err error) error {
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

func errUnexpectedArgs(args []string) error {
	return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
}

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Toolchain errors (exit 4)
	if errors.Is(err, texsnap.ErrToolNotFound) ||
		errors.Is(err, ErrNotReady) {
		return ExitToolchain
	}

	// Compilation errors (exit 5)
	if errors.Is(err, texsnap.ErrCompilation) ||
		errors.Is(err, texsnap.ErrCompilationTimeout) {
		return ExitCompilation
	}

	// Conversion errors (exit 6)
	if errors.Is(err, texsnap.ErrConversion) ||
		errors.Is(err, texsnap.ErrConversionTimeout) {
		return ExitConversion
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrTooManyInputs) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrInputTooLarge) ||
		errors.Is(err, texsnap.ErrInvalidRequest) ||
		errors.Is(err, texsnap.ErrInvalidResolution) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteImage) ||
		errors.Is(err, ErrNoSnippets) {
		return ExitIO
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	case errors.Is(err, texsnap.ErrCompilationTimeout), errors.Is(err, texsnap.ErrConversionTimeout):
		return hints.ForTimeout()
	case errors.Is(err, texsnap.ErrCompilation):
		return hints.ForCompilationFailure()
	case errors.Is(err, texsnap.ErrConversion):
		return hints.ForMissingTools([]string{texsnap.DefaultToolset().Rasterizer})
	case errors.Is(err, texsnap.ErrToolNotFound):
		return hints.ForMissingTools([]string{texsnap.DefaultToolset().Compiler})
	case errors.Is(err, ErrWriteImage):
		return hints.ForOutputDirectory()
	}
	return ""
}

// triedPaths extracts the search list from a config-not-found message.
func triedPaths(err error) []string {
	_, list, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}
