// Package kernel implements the morphology engine's kernel algebra: the
// in-memory representation of a morphology/convolution kernel, parsing of
// user-supplied kernel strings, construction of the named built-in kernel
// families, and the transforms (rotate, reflect, scale, expand) that compose
// them into the lists the method dispatcher walks.
package kernel

import "math"

// Type tags the conceptual family a kernel was built from. It does not
// affect how a kernel is applied, only how it responds to Rotate (some
// families are rotation-invariant) and how ShowKernel labels it.
type Type int

const (
	TypeUser Type = iota
	TypeGaussian
	TypeDOG
	TypeLOG
	TypeBlur
	TypeDOB
	TypeComet
	TypeLaplacian
	TypeSobel
	TypeRoberts
	TypePrewitt
	TypeCompass
	TypeKirsch
	TypeFreiChen
	TypeDiamond
	TypeSquare
	TypeRectangle
	TypeDisk
	TypePlus
	TypeCross
	TypeRing
	TypePeaks
	TypeEdges
	TypeCorners
	TypeRidges
	TypeLineEnds
	TypeLineJunctions
	TypeConvexHull
	TypeSkeleton
	TypeChebyshev
	TypeManhattan
	TypeEuclidean
	TypeUnity
)

var typeNames = map[Type]string{
	TypeUser: "User", TypeGaussian: "Gaussian", TypeDOG: "DOG", TypeLOG: "LOG",
	TypeBlur: "Blur", TypeDOB: "DOB", TypeComet: "Comet", TypeLaplacian: "Laplacian",
	TypeSobel: "Sobel", TypeRoberts: "Roberts", TypePrewitt: "Prewitt",
	TypeCompass: "Compass", TypeKirsch: "Kirsch", TypeFreiChen: "FreiChen",
	TypeDiamond: "Diamond", TypeSquare: "Square", TypeRectangle: "Rectangle",
	TypeDisk: "Disk", TypePlus: "Plus", TypeCross: "Cross", TypeRing: "Ring",
	TypePeaks: "Peaks", TypeEdges: "Edges", TypeCorners: "Corners",
	TypeRidges: "Ridges", TypeLineEnds: "LineEnds", TypeLineJunctions: "LineJunctions",
	TypeConvexHull: "ConvexHull", TypeSkeleton: "Skeleton", TypeChebyshev: "Chebyshev",
	TypeManhattan: "Manhattan", TypeEuclidean: "Euclidean", TypeUnity: "Unity",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// epsilon is the tolerance used when clamping near-zero kernel values and
// when comparing accumulated ranges against zero.
const epsilon = 1.0e-7

// Kernel is a rectangular grid of real-valued weights plus the metadata the
// rest of the engine needs to apply, scale and rotate it. A cell may hold
// math.NaN(), the reserved "don't care" marker excluded from every sum,
// extremum and per-pixel accumulation (invariant 3).
type Kernel struct {
	Width, Height int
	X, Y          int // origin cell, 0 <= X < Width, 0 <= Y < Height
	Values        []float64
	Minimum       float64
	Maximum       float64
	PositiveRange float64
	NegativeRange float64
	Angle         float64
	Type          Type
	Next          *Kernel
}

// New allocates a kernel of the given extent with origin (x, y) and values
// copied from vals (row-major, width*height long), and computes its
// metadata; callers that later assign Values directly must call
// RecomputeMetadata.
func New(width, height, x, y int, vals []float64) *Kernel {
	values := make([]float64, width*height)
	copy(values, vals)
	k := &Kernel{Width: width, Height: height, X: x, Y: y, Values: values}
	RecomputeMetadata(k)
	return k
}

// At returns the value at grid cell (col, row).
func (k *Kernel) At(col, row int) float64 {
	return k.Values[row*k.Width+col]
}

// Set assigns the value at grid cell (col, row).
func (k *Kernel) Set(col, row int, v float64) {
	k.Values[row*k.Width+col] = v
}

// IsNaN reports whether v is the masked-cell sentinel.
func IsNaN(v float64) bool {
	return v != v
}

// Last returns the final kernel in the chain starting at k.
func (k *Kernel) Last() *Kernel {
	last := k
	for last.Next != nil {
		last = last.Next
	}
	return last
}

// Len returns the number of kernels in the chain starting at k.
func (k *Kernel) Len() int {
	n := 0
	for c := k; c != nil; c = c.Next {
		n++
	}
	return n
}

// Clone deep-copies the kernel and, recursively, its whole tail. Destroying
// (dropping) the head of the clone never affects the original chain: no
// tail is ever shared between two heads (invariant 4).
func (k *Kernel) Clone() *Kernel {
	if k == nil {
		return nil
	}
	values := make([]float64, len(k.Values))
	copy(values, k.Values)
	clone := &Kernel{
		Width: k.Width, Height: k.Height, X: k.X, Y: k.Y,
		Values:        values,
		Minimum:       k.Minimum,
		Maximum:       k.Maximum,
		PositiveRange: k.PositiveRange,
		NegativeRange: k.NegativeRange,
		Angle:         k.Angle,
		Type:          k.Type,
		Next:          k.Next.Clone(),
	}
	return clone
}

// Append adds rest to the end of k's chain.
func (k *Kernel) Append(rest *Kernel) {
	k.Last().Next = rest
}

// RecomputeMetadata scans Values and updates Minimum, Maximum, PositiveRange
// and NegativeRange, clamping any value whose magnitude is below epsilon to
// exact zero first. NaN cells are skipped entirely (invariant 3); this must
// be called whenever Values changes, before any scaling or application
// (invariant 1). It only touches the kernel it is called on, not its tail.
func RecomputeMetadata(k *Kernel) {
	k.Minimum, k.Maximum = math.Inf(1), math.Inf(-1)
	k.PositiveRange, k.NegativeRange = 0, 0
	seen := false
	for i, v := range k.Values {
		if IsNaN(v) {
			continue
		}
		if math.Abs(v) < epsilon {
			v = 0
			k.Values[i] = 0
		}
		if v < 0 {
			k.NegativeRange += v
		} else {
			k.PositiveRange += v
		}
		seen = true
		if v < k.Minimum {
			k.Minimum = v
		}
		if v > k.Maximum {
			k.Maximum = v
		}
	}
	if !seen {
		k.Minimum, k.Maximum = 0, 0
	}
}
