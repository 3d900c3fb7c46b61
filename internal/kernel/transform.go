package kernel

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ScaleFlag selects how Scale normalizes a kernel before multiplying by the
// scaling factor.
type ScaleFlag int

const (
	ScaleNone ScaleFlag = 0
	// ScaleNormalize divides by positive_range+negative_range (or, for a
	// zero-summing kernel, by positive_range alone).
	ScaleNormalize ScaleFlag = 1 << iota
	// ScaleCorrelateNormalize scales positive and negative cells
	// independently, forcing a zero-sum, unit-energy kernel.
	ScaleCorrelateNormalize
	// ScalePercent treats the factor as a percentage (factor/100).
	ScalePercent
)

// Scale normalizes (per flags) and multiplies every kernel in the chain
// starting at k by factor, recursing down Next exactly as the original
// ScaleKernelInfo does, so a single call scales a whole multi-kernel list.
func Scale(k *Kernel, factor float64, flags ScaleFlag) {
	if k == nil {
		return
	}
	Scale(k.Next, factor, flags)

	if flags&ScalePercent != 0 {
		factor /= 100.0
	}

	posScale, negScale := 1.0, 1.0
	if flags&ScaleNormalize != 0 {
		if math.Abs(k.PositiveRange+k.NegativeRange) > epsilon {
			posScale = math.Abs(k.PositiveRange + k.NegativeRange)
		} else {
			posScale = k.PositiveRange
		}
		negScale = posScale
	}
	if flags&ScaleCorrelateNormalize != 0 {
		if math.Abs(k.PositiveRange) > epsilon {
			posScale = k.PositiveRange
		} else {
			posScale = 1.0
		}
		if math.Abs(k.NegativeRange) > epsilon {
			negScale = -k.NegativeRange
		} else {
			negScale = 1.0
		}
	} else if flags&ScaleNormalize == 0 {
		negScale = posScale
	}

	posScale = factor / posScale
	negScale = factor / negScale

	for i, v := range k.Values {
		if IsNaN(v) {
			continue
		}
		if v >= 0 {
			k.Values[i] = v * posScale
		} else {
			k.Values[i] = v * negScale
		}
	}

	k.PositiveRange *= posScale
	k.NegativeRange *= negScale
	if k.Maximum >= 0 {
		k.Maximum *= posScale
	} else {
		k.Maximum *= negScale
	}
	if k.Minimum >= 0 {
		k.Minimum *= posScale
	} else {
		k.Minimum *= negScale
	}

	if factor < epsilon {
		k.PositiveRange, k.NegativeRange = k.NegativeRange, k.PositiveRange
		k.Maximum, k.Minimum = k.Minimum, k.Maximum
	}
}

// UnityAdd adds s to the origin cell of every kernel in the chain and
// recomputes metadata.
func UnityAdd(k *Kernel, s float64) {
	for c := k; c != nil; c = c.Next {
		c.Set(c.X, c.Y, c.At(c.X, c.Y)+s)
		RecomputeMetadata(c)
	}
}

// ZeroNaN replaces every NaN cell with 0 in every kernel of the chain.
func ZeroNaN(k *Kernel) {
	for c := k; c != nil; c = c.Next {
		for i, v := range c.Values {
			if IsNaN(v) {
				c.Values[i] = 0
			}
		}
	}
}

// reflectOne rotates a kernel 180 degrees: it reverses Values in place and
// maps the origin (x,y) -> (width-1-x, height-1-y). Equivalent to
// Rotate(k, 180) but does not walk Next or touch Angle/Type dispatch.
func reflectOne(k *Kernel) {
	vals := k.Values
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	k.X = k.Width - 1 - k.X
	k.Y = k.Height - 1 - k.Y
}

// Reflect returns a deep clone of the chain, reflected 180 degrees
// (reverse values, flip origin) at every link.
func Reflect(k *Kernel) *Kernel {
	clone := k.Clone()
	for c := clone; c != nil; c = c.Next {
		reflectOne(c)
		c.Angle = math.Mod(c.Angle+180, 360)
	}
	return clone
}

// cylindricalTypes never change under rotation: they are radially symmetric.
var cylindricalTypes = map[Type]bool{
	TypeGaussian: true, TypeDOG: true, TypeDisk: true, TypePeaks: true,
	TypeLaplacian: true, TypeChebyshev: true, TypeManhattan: true, TypeEuclidean: true,
}

// flatSymmetricTypes are square-symmetric flat shapes: rotating in 90
// degree steps never changes them.
var flatSymmetricTypes = map[Type]bool{
	TypeSquare: true, TypeDiamond: true, TypePlus: true, TypeCross: true,
}

// linearTypes allow only a +/-90 degree rotation (by transpose); a 180
// degree rotation is a no-op since they are already symmetric under it.
var linearTypes = map[Type]bool{
	TypeBlur: true, TypeRectangle: true,
}

// Rotate rotates every kernel in the chain by angle degrees (mod 360),
// descending into Next. Ambiguous or unsupported rotations (a non-3x3
// kernel asked to rotate 45 degrees) are logged through logger, if non-nil,
// and that step is skipped rather than failing; any 90 or 180 degree part
// of the same angle is still applied.
func Rotate(k *Kernel, angle float64, logger *slog.Logger) {
	for c := k; c != nil; c = c.Next {
		rotateOne(c, angle, logger)
	}
}

func rotateOne(k *Kernel, angle float64, logger *slog.Logger) {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	if angle > 337.5 || angle <= 22.5 {
		return
	}

	if cylindricalTypes[k.Type] || flatSymmetricTypes[k.Type] {
		return
	}
	if linearTypes[k.Type] {
		if angle > 135 && angle <= 225 {
			return
		}
		if angle > 225 && angle <= 315 {
			angle -= 180
		}
	}

	if m := math.Mod(angle, 90); m > 22.5 && m <= 67.5 {
		if k.Width == 3 && k.Height == 3 {
			rotate3x3By45(k)
			angle = math.Mod(angle+315, 360)
			k.Angle = math.Mod(k.Angle+45, 360)
		} else if logger != nil {
			logger.Warn("unable to rotate non-3x3 kernel by 45 degrees",
				"width", k.Width, "height", k.Height, "kernel_type", k.Type.String())
		}
	}

	if m := math.Mod(angle, 180); m > 45 && m <= 135 {
		switch {
		case k.Width == 1 || k.Height == 1:
			k.Width, k.Height = k.Height, k.Width
			k.X, k.Y = k.Y, k.X
			if k.Width == 1 {
				angle = math.Mod(angle+270, 360)
				k.Angle = math.Mod(k.Angle+90, 360)
			} else {
				angle = math.Mod(angle+90, 360)
				k.Angle = math.Mod(k.Angle+270, 360)
			}
		case k.Width == k.Height:
			rotateSquare90(k)
			angle = math.Mod(angle+270, 360)
			k.Angle = math.Mod(k.Angle+90, 360)
		default:
			if logger != nil {
				logger.Warn("unable to rotate non-square, non-linear kernel 90 degrees",
					"width", k.Width, "height", k.Height, "kernel_type", k.Type.String())
			}
		}
	}

	if angle > 135 && angle <= 225 {
		reflectOne(k)
		k.Angle = math.Mod(k.Angle+180, 360)
	}
}

// rotate3x3By45 rotates the perimeter of a 3x3 kernel one step clockwise,
// leaving the centre cell untouched.
func rotate3x3By45(k *Kernel) {
	v := k.Values
	t := v[0]
	v[0] = v[3]
	v[3] = v[6]
	v[6] = v[7]
	v[7] = v[8]
	v[8] = v[5]
	v[5] = v[2]
	v[2] = v[1]
	v[1] = t
}

// rotateSquare90 rotates an NxN kernel's values 90 degrees by cycling
// concentric rings.
func rotateSquare90(k *Kernel) {
	v := k.Values
	w := k.Width
	for i, x := 0, w-1; i <= x; i, x = i+1, x-1 {
		for j, y := 0, k.Height-1; j < y; j, y = j+1, y-1 {
			t := v[i+j*w]
			v[i+j*w] = v[j+x*w]
			v[j+x*w] = v[x+y*w]
			v[x+y*w] = v[y+i*w]
			v[y+i*w] = t
		}
	}
}

// Expand replicates the last kernel in the chain by repeatedly cloning it
// and rotating the clone by delta degrees, stopping as soon as a rotated
// clone is bitwise-equal (respecting NaN) to the original head k. The final
// (duplicate) clone is discarded, so the chain covers exactly the distinct
// rotations of k.
func Expand(k *Kernel, delta float64, logger *slog.Logger) {
	last := k.Last()
	for {
		next := last.Clone()
		next.Next = nil
		rotateOne(next, delta, logger)
		if sameKernel(k, next) {
			return
		}
		last.Next = next
		last = next
	}
}

func sameKernel(a, b *Kernel) bool {
	if a.Width != b.Width || a.Height != b.Height {
		return false
	}
	for i := range a.Values {
		av, bv := a.Values[i], b.Values[i]
		if IsNaN(av) != IsNaN(bv) {
			return false
		}
		if !IsNaN(av) && av != bv {
			return false
		}
	}
	return true
}

// ShowKernel renders the kernel's tag, angle, extent, origin, value range,
// output range classification, and the grid itself (masked cells as the
// literal "nan"), matching the teacher's verbose/debug logging idiom.
func ShowKernel(k *Kernel) string {
	var b strings.Builder
	n := 0
	for c := k; c != nil; c = c.Next {
		n++
		fmt.Fprintf(&b, "Kernel #%d %q: %dx%d%+d%+d angle=%g\n",
			n, c.Type.String(), c.Width, c.Height, c.X, c.Y, c.Angle)
		fmt.Fprintf(&b, "  range: min=%g max=%g positive=%g negative=%g (%s)\n",
			c.Minimum, c.Maximum, c.PositiveRange, c.NegativeRange, outputRangeLabel(c))
		for row := 0; row < c.Height; row++ {
			b.WriteString("  ")
			for col := 0; col < c.Width; col++ {
				v := c.At(col, row)
				if IsNaN(v) {
					b.WriteString("nan ")
				} else {
					fmt.Fprintf(&b, "%g ", v)
				}
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func outputRangeLabel(k *Kernel) string {
	sum := k.PositiveRange + k.NegativeRange
	switch {
	case math.Abs(sum) < epsilon:
		return "zero-summing"
	case math.Abs(sum-1) < epsilon:
		return "normalized"
	default:
		return "arbitrary"
	}
}
