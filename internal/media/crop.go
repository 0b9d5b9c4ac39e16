// Package media turns an admin-picked image into a cropped, CDN-hosted photo
// and resolves stored image references to renderable URLs.
package media

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
)

var ErrNoSurface = errors.New("crop region has no drawable area")

// JPEGQuality is the fixed quality of every cropped artifact.
const JPEGQuality = 95

// Ratio is a width:height aspect ratio.
type Ratio struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PortraitRatio is the ratio of team portraits.
var PortraitRatio = Ratio{W: 4, H: 5}

func (r Ratio) valid() bool {
	return r.W > 0 && r.H > 0
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is a crop rectangle in the coordinate space of whatever size it was
// made against.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultCrop is the largest rectangle of ratio that fits within bounds,
// centered. One dimension always fills bounds exactly.
func DefaultCrop(bounds Size, ratio Ratio) Rect {
	if bounds.empty() || !ratio.valid() {
		return Rect{}
	}
	var w, h float64
	if bounds.Width*ratio.H > bounds.Height*ratio.W {
		h = bounds.Height
		w = bounds.Height * ratio.W / ratio.H
	} else {
		w = bounds.Width
		h = bounds.Width * ratio.H / ratio.W
	}
	return Rect{
		X:      (bounds.Width - w) / 2,
		Y:      (bounds.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

// LockRatio derives the height of rect from its width so the ratio holds,
// then shrinks and moves it until it lies within bounds.
func LockRatio(rect Rect, ratio Ratio, bounds Size) Rect {
	if bounds.empty() || !ratio.valid() {
		return Rect{}
	}
	w := math.Max(rect.Width, 1)
	if w > bounds.Width {
		w = bounds.Width
	}
	h := w * ratio.H / ratio.W
	if h > bounds.Height {
		h = bounds.Height
		w = h * ratio.W / ratio.H
	}
	return Rect{
		X:      clamp(rect.X, 0, bounds.Width-w),
		Y:      clamp(rect.Y, 0, bounds.Height-h),
		Width:  w,
		Height: h,
	}
}

// Scale maps rect from the from coordinate space into the to space.
func (r Rect) Scale(from, to Size) Rect {
	if from.empty() {
		return r
	}
	sx := to.Width / from.Width
	sy := to.Height / from.Height
	return Rect{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

// Rasterize cuts crop, given in display coordinates, out of src at native
// resolution and encodes it as JPEG.
func Rasterize(src image.Image, crop Rect, display Size, quality int) ([]byte, error) {
	if src == nil {
		return nil, ErrNoSurface
	}
	bounds := src.Bounds()
	natural := Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	if display.empty() {
		display = natural
	}
	native := crop.Scale(display, natural)

	x0 := int(math.Round(native.X))
	y0 := int(math.Round(native.Y))
	x1 := int(math.Round(native.X + native.Width))
	y1 := int(math.Round(native.Y + native.Height))
	region := image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return nil, ErrNoSurface
	}

	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), src, region.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}
