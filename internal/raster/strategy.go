package raster

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alnah/go-texsnap/internal/fileutil"
	"github.com/alnah/go-texsnap/internal/process"
	"github.com/alnah/go-texsnap/internal/toolchain"
)

// rasterizer renders the first page of src into out.
type rasterizer struct {
	tool string
	args func(src, out string, dpi int) []string
}

// rasterizers returns the primary rasterizer followed by each image tool.
func rasterizers(ts toolchain.Toolset) []rasterizer {
	list := []rasterizer{{tool: ts.Rasterizer, args: pdftoppmArgs}}
	for _, name := range ts.ImageTools {
		list = append(list, rasterizer{tool: name, args: magickArgs})
	}
	return list
}

// pdftoppmArgs takes an output prefix; pdftoppm appends ".png" itself.
func pdftoppmArgs(src, out string, dpi int) []string {
	prefix := strings.TrimSuffix(out, filepath.Ext(out))
	return []string{"-png", "-singlefile", "-r", strconv.Itoa(dpi), src, prefix}
}

// magickArgs selects page 0 so a multi-page artifact yields one file.
func magickArgs(src, out string, dpi int) []string {
	return []string{"-density", strconv.Itoa(dpi), src + "[0]", out}
}

// trimmer removes uniform borders from a PNG in place.
type trimmer struct {
	name string
	run  func(ctx context.Context, c *Converter, path string) error
}

var errUnavailable = errors.New("not available")

// trimmers returns the image tools, magick first, followed by the in-process
// trimmer. ImageMagick 7 warns on every "convert" call.
func trimmers(ts toolchain.Toolset) []trimmer {
	names := make([]string, 0, len(ts.ImageTools))
	for _, name := range ts.ImageTools {
		if name == toolchain.Magick {
			names = append([]string{name}, names...)
			continue
		}
		names = append(names, name)
	}
	list := make([]trimmer, 0, len(names)+1)
	for _, name := range names {
		list = append(list, trimmer{name: name, run: magickTrim(name)})
	}
	return append(list, trimmer{name: "imaging", run: func(_ context.Context, _ *Converter, path string) error {
		_, err := TrimFile(path)
		return err
	}})
}

func magickTrim(tool string) func(context.Context, *Converter, string) error {
	return func(ctx context.Context, c *Converter, path string) error {
		if !c.tools.IsAvailable(ctx, tool) {
			return errUnavailable
		}
		_, err := c.runner.Run(ctx, process.Command{
			Name:    c.tools.Locate(tool),
			Args:    []string{path, "-trim", "+repage", path},
			Dir:     filepath.Dir(path),
			Timeout: c.trimTimeout,
		})
		if err == nil && !fileutil.NonEmptyFile(path) {
			err = ErrNoOutput
		}
		return err
	}
}
