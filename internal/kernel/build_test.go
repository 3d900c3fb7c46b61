package kernel

import (
	"math"
	"testing"
)

// TestBuildGaussianNormalized covers spec scenario S3: Gaussian(rho=0,
// sigma=1) yields a side >= 5 kernel whose values sum to ~1 after
// correlate-normalization.
func TestBuildGaussianNormalized(t *testing.T) {
	k, err := Build("Gaussian", Geometry{Sigma: 1, Flags: FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.Width < 5 || k.Height < 5 {
		t.Fatalf("size = %dx%d, want >= 5x5", k.Width, k.Height)
	}
	sum := 0.0
	for _, v := range k.Values {
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("sum = %v, want ~1", sum)
	}
}

func TestBuildGaussianUnityLimitingCase(t *testing.T) {
	k, err := Build("Gaussian", Geometry{Sigma: 0, Flags: FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(k.X, k.Y) != 1 {
		t.Errorf("origin cell = %v, want 1", k.At(k.X, k.Y))
	}
}

func TestBuildDOGIsZeroSumming(t *testing.T) {
	k, err := Build("DOG", Geometry{Sigma: 1, Xi: 2, Flags: FlagSigma | FlagXi}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sum := 0.0
	for _, v := range k.Values {
		sum += v
	}
	if math.Abs(sum) > 1e-6 {
		t.Errorf("DOG sum = %v, want ~0", sum)
	}
}

func TestBuildLOGCentrePositive(t *testing.T) {
	k, err := Build("LOG", Geometry{Sigma: 1, Flags: FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(k.X, k.Y) <= 0 {
		t.Errorf("LOG centre = %v, want positive", k.At(k.X, k.Y))
	}
}

func TestBuildBlurIsOneDimensional(t *testing.T) {
	k, err := Build("Blur", Geometry{Sigma: 1, Flags: FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.Height != 1 {
		t.Errorf("height = %d, want 1", k.Height)
	}
}

func TestBuildCometDecaysFromOrigin(t *testing.T) {
	k, err := Build("Comet", Geometry{Rho: 5, Sigma: 1, Flags: FlagRho | FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 1; i < len(k.Values); i++ {
		if k.Values[i] > k.Values[i-1]+1e-9 {
			t.Fatalf("comet values not monotonically decreasing: %v", k.Values)
		}
	}
}

func TestBuildLaplacianDefault(t *testing.T) {
	k, err := Build("Laplacian", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(1, 1) != 8 {
		t.Errorf("centre = %v, want 8 (8-neighbourhood default)", k.At(1, 1))
	}
}

func TestBuildLaplacianVariant5x5(t *testing.T) {
	k, err := Build("Laplacian", Geometry{Rho: 5, Flags: FlagRho}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.Width != 5 || k.Height != 5 {
		t.Fatalf("size = %dx%d, want 5x5", k.Width, k.Height)
	}
}

func TestBuildSobelRotatesByAngle(t *testing.T) {
	base, err := Build("Sobel", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rotated, err := Build("Sobel", Geometry{Rho: 90, Flags: FlagRho}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	same := true
	for i := range base.Values {
		if base.Values[i] != rotated.Values[i] {
			same = false
		}
	}
	if same {
		t.Error("rotated Sobel kernel identical to unrotated")
	}
}

func TestBuildFreiChenType1InjectsSqrt2(t *testing.T) {
	k, err := Build("FreiChen", Geometry{Rho: 1, Flags: FlagRho}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := math.Sqrt2 / (2 * math.Sqrt2)
	if math.Abs(k.At(1, 0)-want) > 1e-9 {
		t.Errorf("values[1] = %v, want %v (scaled sqrt2)", k.At(1, 0), want)
	}
}

func TestBuildDiamondShapeMasksCorners(t *testing.T) {
	k, err := Build("Diamond", Geometry{Rho: 1, Flags: FlagRho}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !IsNaN(k.At(0, 0)) {
		t.Errorf("corner = %v, want NaN outside diamond", k.At(0, 0))
	}
	if IsNaN(k.At(1, 0)) {
		t.Errorf("edge-midpoint = %v, want non-NaN inside diamond", k.At(1, 0))
	}
}

func TestBuildSquareDefaultRadius(t *testing.T) {
	k, err := Build("Square", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.Width != 3 || k.Height != 3 {
		t.Fatalf("size = %dx%d, want 3x3 default", k.Width, k.Height)
	}
	for _, v := range k.Values {
		if IsNaN(v) {
			t.Fatal("Square kernel has a masked cell, want all filled")
		}
	}
}

func TestBuildRectangleRejectsSubunitDims(t *testing.T) {
	_, err := Build("Rectangle", Geometry{Rho: 0, Sigma: 5, Flags: FlagRho | FlagSigma}, nil)
	if err == nil {
		t.Fatal("expected error for width < 1")
	}
}

func TestBuildRectangleExplicitOrigin(t *testing.T) {
	k, err := Build("Rectangle", Geometry{
		Rho: 3, Sigma: 2, Xi: 0, Psi: 0,
		Flags: FlagRho | FlagSigma | FlagXi | FlagPsi,
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.X != 0 || k.Y != 0 {
		t.Fatalf("origin = (%d,%d), want (0,0)", k.X, k.Y)
	}
}

func TestBuildPlusIsCross(t *testing.T) {
	k, err := Build("Plus", Geometry{Rho: 1, Sigma: 1, Flags: FlagRho | FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if IsNaN(k.At(1, 0)) || IsNaN(k.At(0, 1)) {
		t.Error("plus arms should not be masked")
	}
	if !IsNaN(k.At(0, 0)) {
		t.Error("plus corners should be masked")
	}
}

func TestBuildRingExcludesInnerAndOuter(t *testing.T) {
	k, err := Build("Ring", Geometry{Rho: 1, Sigma: 2, Xi: 1, Flags: FlagRho | FlagSigma | FlagXi}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !IsNaN(k.At(k.X, k.Y)) {
		t.Error("ring centre should be masked (inside limit1)")
	}
}

func TestBuildPeaksMarksOrigin(t *testing.T) {
	k, err := Build("Peaks", Geometry{Rho: 1, Sigma: 2, Flags: FlagRho | FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(k.X, k.Y) != 1 {
		t.Errorf("peaks origin = %v, want 1", k.At(k.X, k.Y))
	}
}

func TestBuildEdgesExpandsToFour(t *testing.T) {
	k, err := Build("Edges", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.Len() != 4 {
		t.Fatalf("chain length = %d, want 4", k.Len())
	}
}

func TestBuildLineEndsConcatenatesTwoFamilies(t *testing.T) {
	k, err := Build("LineEnds", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.Len() != 8 {
		t.Fatalf("chain length = %d, want 8 (two expanded families of 4)", k.Len())
	}
}

func TestBuildDistanceDefaultScale(t *testing.T) {
	k, err := Build("Euclidean", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// default radius 1, default scale 100: the diagonal cell is
	// 100*sqrt(2).
	want := 100 * math.Sqrt2
	if math.Abs(k.At(0, 0)-want) > 1e-6 {
		t.Errorf("corner = %v, want %v", k.At(0, 0), want)
	}
}

func TestBuildChebyshevMetric(t *testing.T) {
	k, err := Build("Chebyshev", Geometry{Sigma: 1, Flags: FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(0, 0) != 1 {
		t.Errorf("corner = %v, want 1 (chebyshev of a diagonal neighbour)", k.At(0, 0))
	}
}

func TestBuildManhattanMetric(t *testing.T) {
	k, err := Build("Manhattan", Geometry{Sigma: 1, Flags: FlagSigma}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(0, 0) != 2 {
		t.Errorf("corner = %v, want 2 (manhattan of a diagonal neighbour)", k.At(0, 0))
	}
}

func TestBuildUnityIsIdentity(t *testing.T) {
	k, err := Build("Unity", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if k.At(1, 1) != 1 {
		t.Errorf("centre = %v, want 1", k.At(1, 1))
	}
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			if col == 1 && row == 1 {
				continue
			}
			if k.At(col, row) != 0 {
				t.Errorf("cell (%d,%d) = %v, want 0", col, row, k.At(col, row))
			}
		}
	}
}

func TestBuildUnknownNameFails(t *testing.T) {
	_, err := Build("NotAKernel", Geometry{}, nil)
	if err == nil {
		t.Fatal("expected error for unknown kernel name")
	}
}

func TestBuildNameIsCaseInsensitive(t *testing.T) {
	_, err := Build("uNiTy", Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
}
