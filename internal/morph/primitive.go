// Package morph implements the morphology engine's per-pixel primitive
// applier (§4.E) and method dispatcher (§4.F): the inner accumulation rules
// (weighted sum, min/max, hit-and-miss margin, intensity copy, distance
// relaxation) that every compound method is built from, and the four-deep
// loop (method, kernel list, stage, primitive iteration) that composes them
// into the named morphology methods.
package morph

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"morphology-engine/internal/kernel"
	"morphology-engine/internal/pixel"
)

// epsilon guards the convolution primitive's alpha-weighted gamma division
// against a near-zero denominator, matching kernel.epsilon's role.
const epsilon = 1.0e-7

// Primitive names one atomic per-pixel operation (§4.E's accumulation
// table). The method dispatcher (§4.F) composes these into named methods.
type Primitive string

const (
	PrimitiveConvolve        Primitive = "Convolve"
	PrimitiveErode           Primitive = "Erode"
	PrimitiveDilate          Primitive = "Dilate"
	PrimitiveHitMiss         Primitive = "HitMiss"
	PrimitiveThin            Primitive = "Thin"
	PrimitiveThicken         Primitive = "Thicken"
	PrimitiveErodeIntensity  Primitive = "ErodeIntensity"
	PrimitiveDilateIntensity Primitive = "DilateIntensity"
	PrimitiveDistance        Primitive = "Distance"
)

// reflectedPrimitive marks the primitives that use the reflected effective
// origin (§4.E: "effective origin is ... reflected for dilate-like
// methods"). Absence means forward/erode-like. Kernel-cell traversal
// itself is never reversed for any primitive; see weightAt.
var reflectedPrimitive = map[Primitive]bool{
	PrimitiveDilate: true, PrimitiveDilateIntensity: true,
	PrimitiveConvolve: true, PrimitiveDistance: true,
}

// ApplyPrimitive runs one morphology primitive with kernel k over every
// pixel of src, writing into dst, and returns the number of pixels whose
// selected channels changed. Rows are processed in parallel (§5): each row
// reads a disjoint neighbourhood and writes a disjoint destination row, so
// ordering across rows is never observable — only the final dst matters.
func ApplyPrimitive(dst pixel.DestView, src pixel.SourceView, k *kernel.Kernel, prim Primitive, mask pixel.ChannelMask, bias float64, logger *slog.Logger) (int, error) {
	meta := src.Metadata()
	if err := pixel.Validate(meta); err != nil {
		return 0, fmt.Errorf("morph: %w", err)
	}

	reflected := reflectedPrimitive[prim]
	ox, oy := k.X, k.Y
	if reflected {
		ox, oy = k.Width-1-k.X, k.Height-1-k.Y
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > meta.Height {
		workers = meta.Height
	}
	if workers < 1 {
		workers = 1
	}

	rows := make(chan int, meta.Height)
	for y := 0; y < meta.Height; y++ {
		rows <- y
	}
	close(rows)

	var wg sync.WaitGroup
	var changed int64
	var failed atomic.Bool
	var firstErr atomic.Value

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for y := range rows {
				if failed.Load() {
					continue
				}
				n, err := applyRow(dst, src, k, prim, mask, bias, y, meta.Width, ox, oy)
				if err != nil {
					if failed.CompareAndSwap(false, true) {
						firstErr.Store(err)
					}
					continue
				}
				atomic.AddInt64(&changed, int64(n))
			}
		}()
	}
	wg.Wait()

	if failed.Load() {
		err, _ := firstErr.Load().(error)
		if logger != nil {
			logger.Error("primitive row acquisition failed", "primitive", string(prim), "error", err)
		}
		return 0, fmt.Errorf("morph: pixel view acquisition failed mid-row: %w", err)
	}
	return int(changed), nil
}

func applyRow(dst pixel.DestView, src pixel.SourceView, k *kernel.Kernel, prim Primitive, mask pixel.ChannelMask, bias float64, y, width, ox, oy int) (int, error) {
	source, err := src.Source(0, y, width, 1)
	if err != nil {
		return 0, err
	}
	intensity := prim == PrimitiveErodeIntensity || prim == PrimitiveDilateIntensity

	out := make([]pixel.Pixel, width)
	changed := 0
	for x := 0; x < width; x++ {
		neigh, err := src.Source(x-ox, y-oy, k.Width, k.Height)
		if err != nil {
			return 0, err
		}
		result := applyCell(source[x], neigh, k, prim, bias)
		if intensity {
			out[x] = clampPixel(result)
		} else {
			out[x] = mixChannels(source[x], result, mask)
		}
		if out[x] != source[x] {
			changed++
		}
	}

	buf, err := dst.Dest(0, y, width, 1)
	if err != nil {
		return 0, err
	}
	copy(buf, out)
	if err := dst.Sync(0, y, width, 1, buf); err != nil {
		return 0, err
	}
	return changed, nil
}

func applyCell(origin pixel.Pixel, neigh []pixel.Pixel, k *kernel.Kernel, prim Primitive, bias float64) pixel.Pixel {
	switch prim {
	case PrimitiveConvolve:
		return convolveCell(neigh, k, bias)
	case PrimitiveErode:
		return minMaxCell(neigh, k, true)
	case PrimitiveDilate:
		return minMaxCell(neigh, k, false)
	case PrimitiveHitMiss:
		return hitMissMargin(neigh, k)
	case PrimitiveThin:
		return subtractChannels(origin, hitMissMargin(neigh, k))
	case PrimitiveThicken:
		return maxChannels(origin, hitMissMargin(neigh, k))
	case PrimitiveErodeIntensity:
		return intensityCell(origin, neigh, k, true)
	case PrimitiveDilateIntensity:
		return intensityCell(origin, neigh, k, false)
	case PrimitiveDistance:
		return distanceCell(origin, neigh, k)
	default:
		return origin
	}
}

// weightAt returns the kernel weight paired with neighbourhood cell i
// (row-major, matching k.Values layout and the neighbourhood fetch order).
// The dilate-like/erode-like split (§4.E) is carried entirely by which
// effective origin ApplyPrimitive used to fetch the neighbourhood -
// reflecting the origin already reproduces applying the 180-degree-rotated
// kernel; reversing the weight order on top of that would double-flip and
// was verified wrong against the Sobel-X convolution scenario (a [-1,0,1]
// kernel over [0,0,1] must produce [0,1,0], not [0,-1,0]).
func weightAt(k *kernel.Kernel, i int) float64 {
	return k.Values[i]
}

func convolveCell(neigh []pixel.Pixel, k *kernel.Kernel, bias float64) pixel.Pixel {
	r, g, b, idx := bias, bias, bias, bias
	op := bias
	gamma := 0.0
	for i, p := range neigh {
		w := weightAt(k, i)
		if kernel.IsNaN(w) {
			continue
		}
		alpha := p.Alpha() / pixel.QuantumRange
		r += w * alpha * p.R
		g += w * alpha * p.G
		b += w * alpha * p.B
		idx += w * alpha * p.Index
		gamma += w * alpha
		op += w * p.Opacity
	}
	if math.Abs(gamma) < epsilon {
		gamma = 1
	} else {
		gamma = 1 / gamma
	}
	return pixel.Pixel{R: gamma * r, G: gamma * g, B: gamma * b, Index: gamma * idx, Opacity: op}
}

func minMaxCell(neigh []pixel.Pixel, k *kernel.Kernel, useMin bool) pixel.Pixel {
	acc := initExtremum(useMin)
	for i, p := range neigh {
		w := weightAt(k, i)
		if kernel.IsNaN(w) || w < 0.5 {
			continue
		}
		acc = extremum(acc, p, useMin)
	}
	return acc
}

func initExtremum(useMin bool) pixel.Pixel {
	v := math.Inf(-1)
	if useMin {
		v = math.Inf(1)
	}
	return pixel.Pixel{R: v, G: v, B: v, Opacity: v, Index: v}
}

func extremum(a, b pixel.Pixel, useMin bool) pixel.Pixel {
	pick := math.Max
	if useMin {
		pick = math.Min
	}
	return pixel.Pixel{
		R: pick(a.R, b.R), G: pick(a.G, b.G), B: pick(a.B, b.B),
		Opacity: pick(a.Opacity, b.Opacity), Index: pick(a.Index, b.Index),
	}
}

// hitMissMargin computes the shared HitMiss/Thin/Thicken accumulation: the
// channel-wise minimum over "foreground required" cells (k > 0.7) minus the
// maximum over "background required" cells (k < 0.3), clamped to 0. A large
// positive margin means every foreground cell matched and no background
// cell did; HitMiss reports this margin directly, Thin subtracts it from
// the source, Thicken takes the channel-wise max with it.
func hitMissMargin(neigh []pixel.Pixel, k *kernel.Kernel) pixel.Pixel {
	min := initExtremum(true)
	max := initExtremum(false)
	for i, p := range neigh {
		w := weightAt(k, i)
		if kernel.IsNaN(w) {
			continue
		}
		if w > 0.7 {
			min = extremum(min, p, true)
		}
		if w < 0.3 {
			max = extremum(max, p, false)
		}
	}
	return pixel.Pixel{
		R: clampNonNeg(min.R - max.R), G: clampNonNeg(min.G - max.G), B: clampNonNeg(min.B - max.B),
		Opacity: clampNonNeg(min.Opacity - max.Opacity), Index: clampNonNeg(min.Index - max.Index),
	}
}

func clampNonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func subtractChannels(origin, margin pixel.Pixel) pixel.Pixel {
	return pixel.Pixel{
		R: origin.R - margin.R, G: origin.G - margin.G, B: origin.B - margin.B,
		Opacity: origin.Opacity - margin.Opacity, Index: origin.Index - margin.Index,
	}
}

func maxChannels(origin, margin pixel.Pixel) pixel.Pixel {
	return extremum(origin, margin, false)
}

// intensityCell copies the whole pixel from the first qualifying
// neighbour, then replaces it whenever a later qualifying neighbour is
// darker (erode) or lighter (dilate) by luma.
func intensityCell(origin pixel.Pixel, neigh []pixel.Pixel, k *kernel.Kernel, erode bool) pixel.Pixel {
	out := origin
	found := false
	for i, p := range neigh {
		w := weightAt(k, i)
		if kernel.IsNaN(w) || w < 0.5 {
			continue
		}
		if !found {
			out = p
			found = true
			continue
		}
		if erode && p.Luma() < out.Luma() {
			out = p
		} else if !erode && p.Luma() > out.Luma() {
			out = p
		}
	}
	return out
}

func distanceCell(origin pixel.Pixel, neigh []pixel.Pixel, k *kernel.Kernel) pixel.Pixel {
	out := origin
	for i, p := range neigh {
		w := weightAt(k, i)
		if kernel.IsNaN(w) {
			continue
		}
		out.R = math.Min(out.R, w+p.R)
		out.G = math.Min(out.G, w+p.G)
		out.B = math.Min(out.B, w+p.B)
		out.Opacity = math.Min(out.Opacity, w+p.Opacity)
		out.Index = math.Min(out.Index, w+p.Index)
	}
	return out
}

func clampPixel(p pixel.Pixel) pixel.Pixel {
	return pixel.Pixel{
		R: pixel.Clamp(p.R), G: pixel.Clamp(p.G), B: pixel.Clamp(p.B),
		Opacity: pixel.Clamp(p.Opacity), Index: pixel.Clamp(p.Index),
	}
}

// mixChannels seeds the output with the source pixel (§4.E step 3) then
// overwrites only the channels mask selects with result, clamped into the
// quantum range.
func mixChannels(source, result pixel.Pixel, mask pixel.ChannelMask) pixel.Pixel {
	out := source
	if mask.Has(pixel.ChannelRed) {
		out.R = pixel.Clamp(result.R)
	}
	if mask.Has(pixel.ChannelGreen) {
		out.G = pixel.Clamp(result.G)
	}
	if mask.Has(pixel.ChannelBlue) {
		out.B = pixel.Clamp(result.B)
	}
	if mask.Has(pixel.ChannelOpacity) {
		out.Opacity = pixel.Clamp(result.Opacity)
	}
	if mask.Has(pixel.ChannelIndex) {
		out.Index = pixel.Clamp(result.Index)
	}
	return out
}
