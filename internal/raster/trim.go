package raster

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// TrimFile crops uniform borders from the PNG at path, rewriting it only
// when something was removed. The border colour is the top-left pixel.
func TrimFile(path string) (bool, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	trimmed, changed := Trim(img)
	if !changed {
		return false, nil
	}
	if err := imaging.Save(trimmed, path); err != nil {
		return false, fmt.Errorf("saving %s: %w", path, err)
	}
	return true, nil
}

// Trim returns img without the rows and columns at its edges that match the
// top-left pixel exactly. A uniform image is returned unchanged.
func Trim(img image.Image) (image.Image, bool) {
	src := imaging.Clone(img)
	b := src.Bounds()
	if b.Empty() {
		return src, false
	}
	bg := src.NRGBAAt(b.Min.X, b.Min.Y)

	rowUniform := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.NRGBAAt(x, y) != bg {
				return false
			}
		}
		return true
	}
	top := b.Min.Y
	for top < b.Max.Y && rowUniform(top) {
		top++
	}
	if top == b.Max.Y {
		return src, false
	}
	bottom := b.Max.Y - 1
	for rowUniform(bottom) {
		bottom--
	}

	colUniform := func(x int) bool {
		for y := top; y <= bottom; y++ {
			if src.NRGBAAt(x, y) != bg {
				return false
			}
		}
		return true
	}
	left := b.Min.X
	for colUniform(left) {
		left++
	}
	right := b.Max.X - 1
	for colUniform(right) {
		right--
	}

	rect := image.Rect(left, top, right+1, bottom+1)
	if rect == b {
		return src, false
	}
	return imaging.Crop(src, rect), true
}
