package morph

import "morphology-engine/internal/compose"

// Method names a registered morphology method (§4.F's decomposition
// table: Erode, Open, Smooth, HitAndMiss, ...).
type Method string

const (
	MethodErode          Method = "Erode"
	MethodDilate         Method = "Dilate"
	MethodConvolve       Method = "Convolve"
	MethodCorrelate      Method = "Correlate"
	MethodDistance       Method = "Distance"
	MethodThin           Method = "Thin"
	MethodThicken        Method = "Thicken"
	MethodHitAndMiss     Method = "HitAndMiss"
	MethodOpen           Method = "Open"
	MethodClose          Method = "Close"
	MethodTopHat         Method = "TopHat"
	MethodBottomHat      Method = "BottomHat"
	MethodOpenIntensity  Method = "OpenIntensity"
	MethodCloseIntensity Method = "CloseIntensity"
	MethodSmooth         Method = "Smooth"
	MethodEdge           Method = "Edge"
	MethodEdgeIn         Method = "EdgeIn"
	MethodEdgeOut        Method = "EdgeOut"
)

// Stage is one (primitive, kernel-list variant) step of a method's
// decomposition. UseReflectedList marks a stage that runs against the
// whole kernel chain rotated 180 degrees (§4.F: "a reflected stage uses a
// precomputed 180-degree-rotated copy of the whole list").
type Stage struct {
	Primitive        Primitive
	UseReflectedList bool
}

// PostCompose selects the post-method composition §4.F describes for
// Edge*/TopHat/BottomHat.
type PostCompose int

const (
	PostComposeNone PostCompose = iota
	// PostComposeDiffOriginal differences the accumulated result against
	// the saved original image (TopHat, BottomHat, EdgeIn, EdgeOut).
	PostComposeDiffOriginal
	// PostComposeEdge is Edge's own rule: difference the dilation against
	// the erosion, both captured during the stage loop, rather than
	// differencing a single accumulated result against the original.
	PostComposeEdge
)

// Spec describes one method's stage decomposition, in the shape the
// teacher's algorithms.Algorithm/ParameterInfo registry uses for UI
// metadata, narrowed to what the dispatcher needs to run a method.
type Spec struct {
	Stages                     []Stage
	ForceSingleKernelIteration bool // HitAndMiss: kernel iterations forced to 1
	ForceMethodIteratesKernel  bool // Thin/Thicken: method loop takes the iteration count, kernel loop is forced to 1
	PostCompose                PostCompose
	DefaultCombine             compose.Op
}

var methods = make(map[Method]Spec)

// Register adds or replaces a method's decomposition, mirroring the
// teacher's algorithms.Register(name, Algorithm) shape.
func Register(name Method, spec Spec) {
	methods[name] = spec
}

// Get looks up a registered method's decomposition.
func Get(name Method) (Spec, bool) {
	spec, ok := methods[name]
	return spec, ok
}

func init() {
	Register(MethodErode, Spec{Stages: []Stage{{PrimitiveErode, false}}})
	Register(MethodDilate, Spec{Stages: []Stage{{PrimitiveDilate, false}}})
	Register(MethodConvolve, Spec{Stages: []Stage{{PrimitiveConvolve, false}}})
	Register(MethodDistance, Spec{Stages: []Stage{{PrimitiveDistance, false}}})
	Register(MethodThin, Spec{Stages: []Stage{{PrimitiveThin, false}}, ForceMethodIteratesKernel: true})
	Register(MethodThicken, Spec{Stages: []Stage{{PrimitiveThicken, false}}, ForceMethodIteratesKernel: true})
	Register(MethodHitAndMiss, Spec{
		Stages:                     []Stage{{PrimitiveHitMiss, false}},
		ForceSingleKernelIteration: true,
		DefaultCombine:             compose.Lighten,
	})
	Register(MethodCorrelate, Spec{Stages: []Stage{{PrimitiveConvolve, true}}})

	Register(MethodOpen, Spec{Stages: []Stage{{PrimitiveErode, false}, {PrimitiveDilate, false}}})
	Register(MethodClose, Spec{Stages: []Stage{{PrimitiveDilate, true}, {PrimitiveErode, true}}})
	Register(MethodTopHat, Spec{
		Stages:      []Stage{{PrimitiveErode, false}, {PrimitiveDilate, false}},
		PostCompose: PostComposeDiffOriginal,
	})
	Register(MethodBottomHat, Spec{
		Stages:      []Stage{{PrimitiveDilate, true}, {PrimitiveErode, true}},
		PostCompose: PostComposeDiffOriginal,
	})
	Register(MethodOpenIntensity, Spec{Stages: []Stage{{PrimitiveErodeIntensity, false}, {PrimitiveDilateIntensity, false}}})
	Register(MethodCloseIntensity, Spec{Stages: []Stage{{PrimitiveDilateIntensity, true}, {PrimitiveErodeIntensity, true}}})
	Register(MethodSmooth, Spec{Stages: []Stage{
		{PrimitiveErode, false}, {PrimitiveDilate, false},
		{PrimitiveDilate, true}, {PrimitiveErode, true},
	}})

	Register(MethodEdgeOut, Spec{Stages: []Stage{{PrimitiveDilate, false}}, PostCompose: PostComposeDiffOriginal})
	Register(MethodEdgeIn, Spec{Stages: []Stage{{PrimitiveErode, false}}, PostCompose: PostComposeDiffOriginal})
	// Edge's stage list is unused: dispatch.go special-cases it because its
	// two stages apply to different source images (dilation off the
	// evolving work image, erosion off the saved original) rather than
	// chaining one into the other.
	Register(MethodEdge, Spec{PostCompose: PostComposeEdge})
}
