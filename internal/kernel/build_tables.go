package kernel

import (
	"log/slog"
	"math"
)

// newFlat builds a width x height kernel from a flat, row-major literal with
// the origin at its natural centre; used for the ~30 fixed 3x3..9x9 tables
// below, mirroring the literal ParseKernelArray() calls in the original.
func newFlat(width, height int, vals ...float64) *Kernel {
	return New(width, height, width/2, height/2, vals)
}

var nan = math.NaN()

// buildRotatedLiteral builds a fixed 3x3 table and rotates it by geom.Rho
// degrees, the shared shape of Sobel/Roberts/Prewitt/Compass/Kirsch.
func buildRotatedLiteral(t Type, table []float64, geom Geometry, logger *slog.Logger) *Kernel {
	k := newFlat(3, 3, table...)
	k.Type = t
	Rotate(k, geom.Rho, logger)
	return k
}

var (
	sobelTable = []float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	robertsTable = []float64{
		0, 0, 0,
		-1, 1, 0,
		0, 0, 0,
	}
	prewittTable = []float64{
		-1, 1, 1,
		0, 0, 0,
		-1, 1, 1,
	}
	compassTable = []float64{
		-1, 1, 1,
		-1, -2, 1,
		-1, 1, 1,
	}
	kirschTable = []float64{
		-3, -3, 5,
		-3, 0, 5,
		-3, -3, 5,
	}
)

// buildLaplacian selects one of the 8 fixed Laplacian/LOG tables by the
// integer value of geom.Rho ("Laplacian:n"), defaulting to the 3x3
// 8-neighbourhood form.
func buildLaplacian(geom Geometry) *Kernel {
	var k *Kernel
	switch int(geom.Rho) {
	case 1:
		k = newFlat(3, 3,
			0, -1, 0,
			-1, 4, -1,
			0, -1, 0)
	case 2:
		k = newFlat(3, 3,
			-2, 1, -2,
			1, 4, 1,
			-2, 1, -2)
	case 3:
		k = newFlat(3, 3,
			1, -2, 1,
			-2, 4, -2,
			1, -2, 1)
	case 5:
		k = newFlat(5, 5,
			-4, -1, 0, -1, -4,
			-1, 2, 3, 2, -1,
			0, 3, 4, 3, 0,
			-1, 2, 3, 2, -1,
			-4, -1, 0, -1, -4)
	case 7:
		k = newFlat(7, 7,
			-10, -5, -2, -1, -2, -5, -10,
			-5, 0, 3, 4, 3, 0, -5,
			-2, 3, 6, 7, 6, 3, -2,
			-1, 4, 7, 8, 7, 4, -1,
			-2, 3, 6, 7, 6, 3, -2,
			-5, 0, 3, 4, 3, 0, -5,
			-10, -5, -2, -1, -2, -5, -10)
	case 15:
		k = newFlat(5, 5,
			0, 0, -1, 0, 0,
			0, -1, -2, -1, 0,
			-1, -2, 16, -2, -1,
			0, -1, -2, -1, 0,
			0, 0, -1, 0, 0)
	case 19:
		// @12, @24, @40 in the original table are literal numeric
		// constants, not a modifier expansion (open question (b)).
		k = newFlat(9, 9,
			0, -1, -1, -2, -2, -2, -1, -1, 0,
			-1, -2, -4, -5, -5, -5, -4, -2, -1,
			-1, -4, -5, -3, 0, -3, -5, -4, -1,
			-2, -5, -3, 12, 24, 12, -3, -5, -2,
			-2, -5, 0, 24, 40, 24, 0, -5, -2,
			-2, -5, -3, 12, 24, 12, -3, -5, -2,
			-1, -4, -5, -3, 0, -3, -5, -4, -1,
			-1, -2, -4, -5, -5, -5, -4, -2, -1,
			0, -1, -1, -2, -2, -2, -1, -1, 0)
	default:
		k = newFlat(3, 3,
			-1, -1, -1,
			-1, 8, -1,
			-1, -1, -1)
	}
	k.Type = TypeLaplacian
	return k
}

// buildFreiChen selects one of the 9 Frei-Chen edge/line masks by
// int(geom.Rho) ("FreiChen:n,angle") and rotates the result by geom.Sigma.
func buildFreiChen(geom Geometry, logger *slog.Logger) *Kernel {
	sq2 := math.Sqrt2
	var k *Kernel
	switch int(geom.Rho) {
	case 2:
		k = newFlat(3, 3,
			1, 0, 1,
			2, 0, 2,
			1, 0, 1)
		k.Set(0, 1, sq2)
		k.Set(2, 1, sq2)
		RecomputeMetadata(k)
		Scale(k, 1.0/(2.0*sq2), ScaleNone)
	case 3:
		k = newFlat(3, 3,
			0, -1, 2,
			1, 0, -1,
			-2, 1, 0)
		k.Set(2, 0, sq2)
		k.Set(0, 2, -sq2)
		RecomputeMetadata(k)
		Scale(k, 1.0/(2.0*sq2), ScaleNone)
	case 4:
		k = newFlat(3, 3,
			2, -1, 0,
			-1, 0, 1,
			0, 1, -2)
		k.Set(0, 0, sq2)
		k.Set(2, 2, -sq2)
		RecomputeMetadata(k)
		Scale(k, 1.0/(2.0*sq2), ScaleNone)
	case 5:
		k = newFlat(3, 3,
			0, 1, 0,
			-1, 0, -1,
			0, 1, 0)
		Scale(k, 1.0/2.0, ScaleNone)
	case 6:
		k = newFlat(3, 3,
			-1, 0, 1,
			0, 0, 0,
			1, 0, -1)
		Scale(k, 1.0/2.0, ScaleNone)
	case 7:
		k = newFlat(3, 3,
			1, -2, 1,
			-2, 4, -2,
			1, -2, 1)
		Scale(k, 1.0/6.0, ScaleNone)
	case 8:
		k = newFlat(3, 3,
			-2, 1, -2,
			1, 4, 1,
			-2, 1, -2)
		Scale(k, 1.0/6.0, ScaleNone)
	case 9:
		k = newFlat(3, 3,
			1, 1, 1,
			1, 1, 1,
			1, 1, 1)
		Scale(k, 1.0/3.0, ScaleNone)
	default: // case 1
		k = newFlat(3, 3,
			1, 2, 1,
			0, 0, 0,
			-1, 2, -1)
		k.Set(1, 0, sq2)
		k.Set(1, 2, -sq2)
		RecomputeMetadata(k)
		Scale(k, 1.0/(2.0*sq2), ScaleNone)
	}
	k.Type = TypeFreiChen
	Rotate(k, geom.Sigma, logger)
	return k
}

// buildEdges builds the binary-edge hit/miss template and its 4 rotations
// (90 degree steps).
func buildEdges(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		0, 0, 0,
		nan, 1, nan,
		1, 1, 1)
	k.Type = TypeEdges
	Expand(k, 90, logger)
	return k
}

func buildCorners(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		0, 0, nan,
		0, 1, 1,
		nan, 1, nan)
	k.Type = TypeCorners
	Expand(k, 90, logger)
	return k
}

func buildRidges(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		nan, nan, nan,
		0, 1, 0,
		nan, nan, nan)
	k.Type = TypeRidges
	Expand(k, 45, logger)
	return k
}

// buildLineEnds appends a second 4-rotation family to the first, matching
// the two ExpandKernelInfo calls chained via LastKernelInfo in the original.
func buildLineEnds(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		0, 0, 0,
		0, 1, 0,
		nan, 1, nan)
	k.Type = TypeLineEnds
	Expand(k, 90, logger)

	k2 := newFlat(3, 3,
		0, 0, 0,
		0, 1, 0,
		0, 0, 1)
	k2.Type = TypeLineEnds
	Expand(k2, 90, logger)

	k.Last().Next = k2
	return k
}

func buildLineJunctions(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		nan, 1, nan,
		nan, 1, nan,
		1, nan, 1)
	k.Type = TypeLineJunctions
	Expand(k, 45, logger)

	k2 := newFlat(3, 3,
		1, nan, nan,
		nan, 1, nan,
		1, nan, 1)
	k2.Type = TypeLineJunctions
	Expand(k2, 90, logger)

	k.Last().Next = k2
	return k
}

func buildConvexHull(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		1, 1, nan,
		1, 0, nan,
		1, nan, 0)
	k.Type = TypeConvexHull
	Expand(k, 90, logger)

	k2 := newFlat(3, 3,
		1, 1, 1,
		1, 0, 0,
		nan, nan, 0)
	k2.Type = TypeConvexHull
	Expand(k2, 90, logger)

	k.Last().Next = k2
	return k
}

func buildSkeleton(logger *slog.Logger) *Kernel {
	k := newFlat(3, 3,
		0, 0, nan,
		0, 1, 1,
		nan, 1, 1)
	k.Type = TypeSkeleton
	Expand(k, 45, logger)
	return k
}
