package raster

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-texsnap/internal/process/processtest"
	"github.com/alnah/go-texsnap/internal/toolchain"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type fixture struct {
	runner   *processtest.Runner
	conv     *Converter
	artifact string
	output   string
}

func newFixture(t *testing.T, runner *processtest.Runner) fixture {
	t.Helper()
	dir := t.TempDir()
	artifact := filepath.Join(dir, "document.pdf")
	require.NoError(t, os.WriteFile(artifact, []byte("%PDF-1.5"), 0o600))

	resolver := toolchain.NewResolver(runner, toolchain.WithLookPath(runner.LookPath))
	return fixture{
		runner:   runner,
		conv:     NewConverter(runner, resolver, Config{}),
		artifact: artifact,
		output:   filepath.Join(dir, "document.png"),
	}
}

func pdftoppmWrites(png []byte) processtest.Response {
	return processtest.Response{Effect: processtest.WriteArgExt(-1, ".png", png)}
}

func magickWrites(png []byte) processtest.Response {
	return processtest.Response{Effect: processtest.WriteArg(-1, png)}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngSignature), "output is not a PNG")
}

// ---------------------------------------------------------------------------
// TestConvert - Rasterizer chain
// ---------------------------------------------------------------------------

func TestConvert_PrimaryRasterizer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().On("pdftoppm", pdftoppmWrites(processtest.PNG(40, 20, 0))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Resolution: 150})
	require.NoError(t, err)

	assert.Equal(t, "pdftoppm", res.Tool)
	assert.Equal(t, f.output, res.Path)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 20, res.Height)
	assert.Empty(t, res.Attempts)
	assertPNG(t, f.output)

	call := f.runner.CallsTo("pdftoppm")[0]
	assert.Equal(t, []string{"-png", "-singlefile", "-r", "150", f.artifact, strings.TrimSuffix(f.output, ".png")}, call.Args)
	assert.Equal(t, DefaultTimeout, call.Timeout)
}

func TestConvert_FallbackWhenPrimaryMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().On("convert", magickWrites(processtest.PNG(30, 30, 0))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{})
	require.NoError(t, err)

	assert.Equal(t, "convert", res.Tool)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, "pdftoppm", res.Attempts[0].Tool)
	assertPNG(t, f.output)

	call := f.runner.CallsTo("convert")[0]
	assert.Equal(t, []string{"-density", "300", f.artifact + "[0]", f.output}, call.Args)
}

func TestConvert_SecondImageToolCandidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdftoppm", processtest.Fail(99, "Syntax Error: Couldn't find trailer dictionary")).
		On("magick", magickWrites(processtest.PNG(10, 10, 0))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{})
	require.NoError(t, err)

	assert.Equal(t, "magick", res.Tool)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, "pdftoppm", res.Attempts[0].Tool)
	assert.Equal(t, "convert", res.Attempts[1].Tool)
}

func TestConvert_ZeroExitWithoutOutputFallsThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdftoppm").
		On("convert", magickWrites(processtest.PNG(10, 10, 0))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{})
	require.NoError(t, err)
	assert.Equal(t, "convert", res.Tool)
	assert.ErrorIs(t, res.Attempts[0].Err, ErrNoOutput)
}

func TestConvert_AllRasterizersMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New())

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.NotErrorIs(t, err, ErrConversionTimeout)
	for _, tool := range []string{"pdftoppm", "convert", "magick"} {
		assert.Contains(t, err.Error(), tool)
	}
	assert.Len(t, res.Attempts, 3)
	assert.NoFileExists(t, f.output)
}

func TestConvert_TimeoutIsDistinct(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().On("pdftoppm", processtest.TimedOut()))

	_, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{})
	assert.ErrorIs(t, err, ErrConversionTimeout)
	assert.NotErrorIs(t, err, ErrConversionFailed)
}

func TestConvert_RejectsNonPNGOutput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New())

	_, err := f.conv.Convert(context.Background(), f.artifact, strings.TrimSuffix(f.output, ".png")+".jpg", Options{})
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Empty(t, f.runner.Calls())
}

// ---------------------------------------------------------------------------
// TestConvert - Crop and trim policy
// ---------------------------------------------------------------------------

func TestConvert_CropWithCropper(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdfcrop", processtest.Response{Effect: processtest.WriteArg(-1, []byte("%PDF-cropped"))}).
		On("pdftoppm", pdftoppmWrites(processtest.PNG(50, 50, 10))).
		On("convert"))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: true})
	require.NoError(t, err)

	assert.True(t, res.Cropped)
	assert.False(t, res.Trimmed, "trim must not run after a vector crop")
	assert.Empty(t, f.runner.CallsTo("convert"))

	cropped := strings.TrimSuffix(f.artifact, ".pdf") + "-cropped.pdf"
	crop := f.runner.CallsTo("pdfcrop")[0]
	assert.Equal(t, []string{"--margins", "3", f.artifact, cropped}, crop.Args)
	assert.Equal(t, cropped, f.runner.CallsTo("pdftoppm")[0].Args[4])
}

func TestConvert_NoCropRequested(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdfcrop").
		On("pdftoppm", pdftoppmWrites(processtest.PNG(50, 50, 10))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: false})
	require.NoError(t, err)

	assert.False(t, res.Cropped)
	assert.False(t, res.Trimmed)
	assert.Empty(t, f.runner.CallsTo("pdfcrop"))
	assert.Equal(t, 50, res.Width)
}

func TestConvert_TrimWithImageToolWhenCropperMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdftoppm", pdftoppmWrites(processtest.PNG(50, 50, 10))).
		On("convert"))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: true})
	require.NoError(t, err)

	assert.False(t, res.Cropped)
	assert.True(t, res.Trimmed)
	trim := f.runner.CallsTo("convert")
	require.Len(t, trim, 1)
	assert.Equal(t, []string{f.output, "-trim", "+repage", f.output}, trim[0].Args)
	assert.Equal(t, DefaultTrimTimeout, trim[0].Timeout)
}

func TestConvert_TrimInProcessWhenNoImageTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().On("pdftoppm", pdftoppmWrites(processtest.PNG(60, 40, 10))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: true})
	require.NoError(t, err)

	assert.True(t, res.Trimmed)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 20, res.Height)
	assertPNG(t, f.output)
}

func TestConvert_CropperFailureIsSilent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdfcrop", processtest.Fail(1, "pdfcrop: Ghostscript error")).
		On("pdftoppm", pdftoppmWrites(processtest.PNG(60, 40, 10))))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: true})
	require.NoError(t, err)

	assert.False(t, res.Cropped)
	assert.True(t, res.Trimmed)
	assert.Equal(t, f.artifact, f.runner.CallsTo("pdftoppm")[0].Args[4])
}

// ---------------------------------------------------------------------------
// TestTrim - In-process trimming
// ---------------------------------------------------------------------------

func TestTrim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		w, h        int
		border      int
		wantChanged bool
		wantW       int
		wantH       int
	}{
		{"bordered", 60, 40, 10, true, 40, 20},
		{"uniform white", 30, 30, 15, false, 30, 30},
		{"no border", 30, 20, 0, false, 30, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "in.png")
			require.NoError(t, os.WriteFile(path, processtest.PNG(tt.w, tt.h, tt.border), 0o600))

			changed, err := TrimFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)

			cfg, err := decodeConfig(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestTrimFile_NotAnImage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o600))

	_, err := TrimFile(path)
	assert.Error(t, err)
}

func TestRasterizers_Order(t *testing.T) {
	t.Parallel()

	list := rasterizers(toolchain.DefaultToolset())
	names := make([]string, len(list))
	for i, r := range list {
		names[i] = r.tool
	}
	assert.Equal(t, []string{"pdftoppm", "convert", "magick"}, names)
}

func TestTrimmers_PreferMagick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tools []string
		want  []string
	}{
		{"default toolset", toolchain.DefaultToolset().ImageTools, []string{"magick", "convert", "imaging"}},
		{"convert only", []string{"convert"}, []string{"convert", "imaging"}},
		{"none", nil, []string{"imaging"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			list := trimmers(toolchain.Toolset{ImageTools: tt.tools})
			names := make([]string, len(list))
			for i, tr := range list {
				names[i] = tr.name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestConvert_TrimUsesMagickBeforeConvert(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processtest.New().
		On("pdftoppm", pdftoppmWrites(processtest.PNG(50, 50, 10))).
		On("convert").
		On("magick"))

	res, err := f.conv.Convert(context.Background(), f.artifact, f.output, Options{Crop: true})
	require.NoError(t, err)

	assert.True(t, res.Trimmed)
	require.Len(t, f.runner.CallsTo("magick"), 1)
	assert.Empty(t, f.runner.CallsTo("convert"))
}
