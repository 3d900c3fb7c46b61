package morph

import (
	"testing"

	"morphology-engine/internal/compose"
	"morphology-engine/internal/kernel"
	"morphology-engine/internal/pixel"
)

func squareKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	k, err := kernel.Build("Square", kernel.Geometry{Rho: 1, Flags: kernel.FlagRho}, nil)
	if err != nil {
		t.Fatalf("Build(Square): %v", err)
	}
	return k
}

func TestApplyZeroIterationsReturnsNoImage(t *testing.T) {
	img := pixel.NewBuffer(3, 3, 1)
	result, err := Apply(img, MethodErode, pixel.AllChannels, 0, squareKernel(t), "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result != nil {
		t.Fatalf("Apply(iterations=0) = %+v, want nil", result)
	}
}

func TestApplyUnknownMethodErrors(t *testing.T) {
	img := pixel.NewBuffer(3, 3, 1)
	if _, err := Apply(img, Method("Bogus"), pixel.AllChannels, 1, squareKernel(t), "", 0, nil, nil); err == nil {
		t.Fatal("Apply(unknown method) = nil error, want one")
	}
}

func TestApplyNilKernelErrors(t *testing.T) {
	img := pixel.NewBuffer(3, 3, 1)
	if _, err := Apply(img, MethodErode, pixel.AllChannels, 1, nil, "", 0, nil, nil); err == nil {
		t.Fatal("Apply(nil kernel) = nil error, want one")
	}
}

// S6 at the dispatch level, restated via a cross-shaped foreground instead of
// a straight line: Opening with Square:1 removes any shape that offers no
// 3x3 fully-foreground neighbourhood.
func TestOpenRemovesThinCross(t *testing.T) {
	img := pixel.NewBuffer(9, 9, 1)
	for i := 0; i < 9; i++ {
		img.Sync(i, 4, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})
		img.Sync(4, i, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})
	}
	result, err := Apply(img, MethodOpen, pixel.AllChannels, 1, squareKernel(t), "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply(Open): %v", err)
	}
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			if got := readR(t, result, x, y); got != 0 {
				t.Errorf("(%d,%d) = %v, want 0 after opening a 1px-wide cross", x, y, got)
			}
		}
	}
}

// Close is Open's dual: closing a single-pixel gap in an otherwise solid bar
// fills it back in.
func TestCloseFillsSinglePixelGap(t *testing.T) {
	img := pixel.NewBuffer(9, 3, 1)
	for x := 0; x < 9; x++ {
		if x == 4 {
			continue
		}
		img.Sync(x, 1, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})
	}
	result, err := Apply(img, MethodClose, pixel.AllChannels, 1, squareKernel(t), "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply(Close): %v", err)
	}
	if got := readR(t, result, 4, 1); got != pixel.QuantumRange {
		t.Errorf("gap pixel = %v, want %v after Close", got, pixel.QuantumRange)
	}
}

// TopHat (Open then difference against the original) isolates bright detail
// thinner than the structuring element: a lone spike atop a flat field.
func TestTopHatIsolatesThinSpike(t *testing.T) {
	img := pixel.NewBuffer(5, 5, 1)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			img.Sync(x, y, 1, 1, []pixel.Pixel{{R: 100}})
		}
	}
	img.Sync(2, 2, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})

	result, err := Apply(img, MethodTopHat, pixel.AllChannels, 1, squareKernel(t), "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply(TopHat): %v", err)
	}
	if got := readR(t, result, 2, 2); got <= 0 {
		t.Errorf("TopHat spike pixel = %v, want > 0", got)
	}
	if got := readR(t, result, 0, 0); got != 0 {
		t.Errorf("TopHat flat-field pixel = %v, want 0", got)
	}
}

// Regression: iterations controls the per-stage primitive-repeat count
// (kernel_limit in the original), not an outer repeat of the whole method
// (method_limit stays 1 for every method except Thin/Thicken). Feeding
// iterations=2 into TopHat must not re-run Open on the already-diffed
// result and diff it against the original a second time - it must still
// converge to the same one-shot TopHat answer, since the lone spike is
// already fully eroded away after a single erosion pass.
func TestTopHatIterationsRepeatsPrimitiveNotMethod(t *testing.T) {
	img := pixel.NewBuffer(5, 5, 1)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			img.Sync(x, y, 1, 1, []pixel.Pixel{{R: 100}})
		}
	}
	img.Sync(2, 2, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})

	result, err := Apply(img, MethodTopHat, pixel.AllChannels, 2, squareKernel(t), "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply(TopHat, iterations=2): %v", err)
	}
	if got := readR(t, result, 2, 2); got <= 0 {
		t.Errorf("TopHat spike pixel = %v, want > 0", got)
	}
	if got := readR(t, result, 0, 0); got != 0 {
		t.Errorf("TopHat flat-field pixel = %v, want 0 (a doubled method loop would re-diff against the original and leave the flat field at 100)", got)
	}
}

// EdgeOut (dilate then difference against the original) traces the outer
// boundary of a filled shape and leaves the interior untouched.
func TestEdgeOutTracesBoundaryOnly(t *testing.T) {
	img := pixel.NewBuffer(7, 7, 1)
	for y := 1; y <= 5; y++ {
		for x := 1; x <= 5; x++ {
			img.Sync(x, y, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})
		}
	}
	result, err := Apply(img, MethodEdgeOut, pixel.AllChannels, 1, squareKernel(t), "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply(EdgeOut): %v", err)
	}
	if got := readR(t, result, 3, 3); got != 0 {
		t.Errorf("EdgeOut interior pixel (3,3) = %v, want 0", got)
	}
	if got := readR(t, result, 0, 3); got == 0 {
		t.Errorf("EdgeOut boundary pixel (0,3) = %v, want > 0", got)
	}
}

// S8: HitAndMiss with LineEnds (which auto-expands to 8 rotated templates,
// §8) unioned via the method's default Lighten combine, highlights the four
// arm tips of a cross and nothing along its body.
func TestHitAndMissLineEndsFindsCrossArmTips(t *testing.T) {
	img := pixel.NewBuffer(11, 11, 1)
	for i := 2; i <= 8; i++ {
		img.Sync(i, 5, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})
		img.Sync(5, i, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})
	}

	k, err := kernel.Build("LineEnds", kernel.Geometry{}, nil)
	if err != nil {
		t.Fatalf("Build(LineEnds): %v", err)
	}
	if k.Len() != 8 {
		t.Fatalf("LineEnds kernel chain length = %d, want 8", k.Len())
	}

	result, err := Apply(img, MethodHitAndMiss, pixel.AllChannels, 1, k, "", 0, nil, nil)
	if err != nil {
		t.Fatalf("Apply(HitAndMiss): %v", err)
	}

	tips := [][2]int{{2, 5}, {8, 5}, {5, 2}, {5, 8}}
	for _, tip := range tips {
		if got := readR(t, result, tip[0], tip[1]); got <= 0 {
			t.Errorf("arm tip (%d,%d) = %v, want > 0", tip[0], tip[1], got)
		}
	}
	if got := readR(t, result, 5, 5); got != 0 {
		t.Errorf("cross centre (5,5) = %v, want 0 (not a line end)", got)
	}
}

func TestApplyAcceptsCombineOverride(t *testing.T) {
	img := pixel.NewBuffer(5, 5, 1)
	img.Sync(2, 2, 1, 1, []pixel.Pixel{{R: pixel.QuantumRange}})

	k := squareKernel(t)
	if _, err := Apply(img, MethodErode, pixel.AllChannels, 1, k, compose.Darken, 0, nil, nil); err != nil {
		t.Fatalf("Apply with combine override: %v", err)
	}
}
