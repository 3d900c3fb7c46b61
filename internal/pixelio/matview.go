// Package pixelio backs the engine's pixel-view contracts
// (internal/pixel.SourceView/DestView) with gocv.io/x/gocv Mats, so the
// morphology engine can run directly against images the teacher's
// internal/io loader already knows how to load and save.
package pixelio

import (
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"morphology-engine/internal/pixel"
)

// supportedImageFormats mirrors the teacher's internal/io.ImageLoader
// allow-list: morphology on an unrecognised container is refused up front
// rather than failing deep inside a read.
var supportedImageFormats = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tiff": true, ".tif": true, ".bmp": true,
}

func isSupportedImageFormat(path string) bool {
	ext := ""
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			ext = path[i:]
			break
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	for i := 0; i < len(ext); i++ {
		if ext[i] >= 'A' && ext[i] <= 'Z' {
			ext = ext[:i] + string(ext[i]+32) + ext[i+1:]
		}
	}
	return supportedImageFormats[ext]
}

// MatView adapts a gocv.Mat (8-bit, 1/3/4 channel) to pixel.SourceView and
// pixel.DestView. Reads outside the Mat's extent zero-pad, matching
// pixel.Buffer (§4.E's Sobel-X scenario requires this at image borders).
type MatView struct {
	mat    gocv.Mat
	logger *slog.Logger
}

// NewMatView wraps an already-loaded Mat. The Mat must outlive the view;
// MatView never closes it.
func NewMatView(mat gocv.Mat, logger *slog.Logger) (*MatView, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("pixelio: cannot view an empty image")
	}
	channels := mat.Channels()
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("pixelio: unsupported number of channels: %d", channels)
	}
	return &MatView{mat: mat, logger: logger}, nil
}

// Load reads an image file into a new MatView, grounded on the teacher's
// ImageLoader.LoadImage (format allow-list, slog progress logging).
func Load(path string, logger *slog.Logger) (*MatView, error) {
	if logger != nil {
		logger.Debug("loading image", "path", path)
	}
	if !isSupportedImageFormat(path) {
		return nil, fmt.Errorf("pixelio: unsupported image format: %s", path)
	}
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		return nil, fmt.Errorf("pixelio: failed to load image: %s", path)
	}
	view, err := NewMatView(mat, logger)
	if err != nil {
		mat.Close()
		return nil, err
	}
	if logger != nil {
		logger.Info("image loaded", "path", path, "width", mat.Cols(), "height", mat.Rows(), "channels", mat.Channels())
	}
	return view, nil
}

// Save writes the view's Mat to path, grounded on ImageLoader.SaveImage.
func Save(path string, view *MatView) error {
	if view.mat.Empty() {
		return fmt.Errorf("pixelio: cannot save an empty image")
	}
	if !isSupportedImageFormat(path) {
		return fmt.Errorf("pixelio: unsupported image format: %s", path)
	}
	if ok := gocv.IMWrite(path, view.mat); !ok {
		return fmt.Errorf("pixelio: failed to save image: %s", path)
	}
	if view.logger != nil {
		view.logger.Info("image saved", "path", path)
	}
	return nil
}

// Close releases the backing Mat.
func (v *MatView) Close() error { return v.mat.Close() }

// Mat exposes the backing Mat for callers that need to hand it to gocv
// directly.
func (v *MatView) Mat() gocv.Mat { return v.mat }

func (v *MatView) Metadata() pixel.Metadata {
	return pixel.Metadata{Width: v.mat.Cols(), Height: v.mat.Rows(), Channels: v.mat.Channels()}
}

func (v *MatView) inBounds(x, y int) bool {
	return x >= 0 && x < v.mat.Cols() && y >= 0 && y < v.mat.Rows()
}

func (v *MatView) readPixel(x, y int) pixel.Pixel {
	if !v.inBounds(x, y) {
		return pixel.Pixel{}
	}
	switch v.mat.Channels() {
	case 1:
		g := float64(v.mat.GetUCharAt(y, x)) * (pixel.QuantumRange / 255.0)
		return pixel.Pixel{R: g, G: g, B: g}
	case 3:
		vec := v.mat.GetVecbAt(y, x)
		scale := pixel.QuantumRange / 255.0
		return pixel.Pixel{B: float64(vec[0]) * scale, G: float64(vec[1]) * scale, R: float64(vec[2]) * scale}
	default:
		vec := v.mat.GetVecbAt(y, x)
		scale := pixel.QuantumRange / 255.0
		return pixel.Pixel{
			B: float64(vec[0]) * scale, G: float64(vec[1]) * scale, R: float64(vec[2]) * scale,
			Opacity: pixel.QuantumRange - float64(vec[3])*scale,
		}
	}
}

func (v *MatView) writePixel(x, y int, p pixel.Pixel) {
	if !v.inBounds(x, y) {
		return
	}
	scale := 255.0 / pixel.QuantumRange
	to8 := func(q float64) uint8 { return uint8(pixel.Clamp(q) * scale) }
	switch v.mat.Channels() {
	case 1:
		v.mat.SetUCharAt(y, x, to8(p.Luma()))
	case 3:
		v.mat.SetUCharAt3(y, x, 0, to8(p.B))
		v.mat.SetUCharAt3(y, x, 1, to8(p.G))
		v.mat.SetUCharAt3(y, x, 2, to8(p.R))
	default:
		v.mat.SetUCharAt3(y, x, 0, to8(p.B))
		v.mat.SetUCharAt3(y, x, 1, to8(p.G))
		v.mat.SetUCharAt3(y, x, 2, to8(p.R))
		v.mat.SetUCharAt3(y, x, 3, to8(pixel.QuantumRange-p.Opacity))
	}
}

// Source acquires a w x h neighbourhood at (x, y); out-of-bounds
// coordinates zero-pad.
func (v *MatView) Source(x, y, w, h int) ([]pixel.Pixel, error) {
	out := make([]pixel.Pixel, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			out[row*w+col] = v.readPixel(x+col, y+row)
		}
	}
	return out, nil
}

// Dest hands back a fresh, unpopulated region; writes only take effect once
// Sync is called, matching pixel.DestView's contract.
func (v *MatView) Dest(x, y, w, h int) ([]pixel.Pixel, error) {
	return make([]pixel.Pixel, w*h), nil
}

// Sync writes pixels into the backing Mat at (x, y), discarding any part of
// the region outside the Mat's extent.
func (v *MatView) Sync(x, y, w, h int, pixels []pixel.Pixel) error {
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			v.writePixel(x+col, y+row, pixels[row*w+col])
		}
	}
	return nil
}

// NewBlankMat allocates a fresh Mat suitable as an ApplyPrimitive/Apply
// destination matching another view's extent and type.
func NewBlankMat(meta pixel.Metadata) gocv.Mat {
	matType := gocv.MatTypeCV8UC1
	switch meta.Channels {
	case 3:
		matType = gocv.MatTypeCV8UC3
	case 4:
		matType = gocv.MatTypeCV8UC4
	}
	return gocv.NewMatWithSize(meta.Height, meta.Width, matType)
}
