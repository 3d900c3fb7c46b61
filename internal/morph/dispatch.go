package morph

import (
	"fmt"
	"log/slog"

	"morphology-engine/internal/compose"
	"morphology-engine/internal/diagnostics"
	"morphology-engine/internal/kernel"
	"morphology-engine/internal/pixel"
)

// Apply is the method dispatcher (§4.F): a single call that walks the
// method/kernel-list/stage/primitive-iteration four-deep loop and returns
// the resulting image, or nil for the documented no-op/error cases.
//
// iterations = 0 returns (nil, nil) with no error, matching §7's "zero
// iterations requested -> return null; no diagnostic". iterations < 0
// means "repeat until nothing changes", bounded by max(width, height) (§7):
// each stage's primitive is repeated for most methods, the whole method
// pass for Thin/Thicken. combineOverride, if non-empty, replaces the
// method's default multi-kernel combiner (§6 morphology:compose knob);
// pass "" to use the method's default.
func Apply(src pixel.SourceView, method Method, channel pixel.ChannelMask, iterations int, kernels *kernel.Kernel, combineOverride compose.Op, bias float64, sink *diagnostics.Sink, logger *slog.Logger) (*pixel.Buffer, error) {
	if iterations == 0 {
		return nil, nil
	}
	spec, ok := Get(method)
	if !ok {
		return nil, fmt.Errorf("morph: unknown method %q", method)
	}
	if kernels == nil {
		return nil, fmt.Errorf("morph: method %q requires at least one kernel", method)
	}
	if err := pixel.Validate(src.Metadata()); err != nil {
		return nil, fmt.Errorf("morph: %w", err)
	}

	meta := src.Metadata()
	bound := iterations
	if iterations < 0 {
		bound = maxInt(meta.Width, meta.Height)
	}

	// By default the method loop runs once and the requested iteration
	// count applies to the kernel-list loop inside it (morphology.c:2575:
	// kernel_limit = iterations, method_limit = 1). Thin/Thicken swap the
	// two (method_limit = kernel_limit; kernel_limit = 1); HitAndMiss
	// forces kernel_limit = 1 alone via ForceSingleKernelIteration.
	methodLimit, kernelLimit := 1, bound
	if spec.ForceMethodIteratesKernel {
		methodLimit, kernelLimit = bound, 1
	}
	if spec.ForceSingleKernelIteration {
		kernelLimit = 1
	}

	combine := spec.DefaultCombine
	if combine == "" {
		combine = compose.NoCompose
	}
	if combineOverride != "" {
		combine = combineOverride
	}

	original, err := pixel.Snapshot(src)
	if err != nil {
		return nil, fmt.Errorf("morph: %w", err)
	}
	current := original.Clone()

	for iter := 0; iter < methodLimit; iter++ {
		var (
			result  *pixel.Buffer
			changed int
			err     error
		)
		if method == MethodEdge {
			result, changed, err = runEdgeKernelList(current, original, kernels, kernelLimit, bias, channel, combine, logger)
		} else {
			result, changed, err = runKernelList(current, spec, kernels, kernelLimit, bias, channel, combine, logger)
		}
		if err != nil {
			return nil, err
		}

		if spec.PostCompose == PostComposeDiffOriginal {
			diffed := result.Clone()
			if err := compose.Apply(diffed.Pixels(), original.Pixels(), compose.Difference, channel); err != nil {
				return nil, fmt.Errorf("morph: %w", err)
			}
			result = diffed
		}

		current = result
		if logger != nil {
			logger.Debug("method iteration", "method", string(method), "iteration", iter, "pixels_changed", changed)
		}
		if changed == 0 {
			break
		}
	}

	return current, nil
}

// runKernelList implements loop items 2-4 for every method except Edge:
// walk the kernel list, run each kernel's stages (with per-stage primitive
// iteration), and reduce the per-kernel results with combine. For
// combine == NoCompose each kernel's stages run against the previous
// kernel's result (chaining); for any other combiner each kernel's stages
// run against the same starting image and are reduced afterward (§4.F:
// "Default is Lighten for HitAndMiss, no-compose ... for all others").
func runKernelList(start *pixel.Buffer, spec Spec, kernels *kernel.Kernel, kernelLimit int, bias float64, channel pixel.ChannelMask, combine compose.Op, logger *slog.Logger) (*pixel.Buffer, int, error) {
	var combined *pixel.Buffer
	totalChanged := 0

	for kc := kernels; kc != nil; kc = kc.Next {
		stageIn := start
		if combine == compose.NoCompose && combined != nil {
			stageIn = combined
		}

		stageResult, n, err := runStages(stageIn, spec.Stages, kc, kernelLimit, bias, channel, logger)
		if err != nil {
			return nil, 0, err
		}
		totalChanged += n

		if combined == nil {
			combined = stageResult
			continue
		}
		merged := combined.Clone()
		if err := compose.Apply(merged.Pixels(), stageResult.Pixels(), combine, channel); err != nil {
			return nil, 0, fmt.Errorf("morph: %w", err)
		}
		combined = merged
	}
	return combined, totalChanged, nil
}

// runEdgeKernelList is Edge's special two-image stage: dilation runs
// against the evolving work image, erosion always runs against the saved
// original (§4.F: "Edge | 2 | Dilate; Erode on saved original"), and the
// per-kernel result is their difference.
func runEdgeKernelList(start, original *pixel.Buffer, kernels *kernel.Kernel, kernelLimit int, bias float64, channel pixel.ChannelMask, combine compose.Op, logger *slog.Logger) (*pixel.Buffer, int, error) {
	var combined *pixel.Buffer
	totalChanged := 0

	dilateStage := []Stage{{PrimitiveDilate, false}}
	erodeStage := []Stage{{PrimitiveErode, false}}

	for kc := kernels; kc != nil; kc = kc.Next {
		dilated, n1, err := runStages(start, dilateStage, kc, kernelLimit, bias, channel, logger)
		if err != nil {
			return nil, 0, err
		}
		eroded, n2, err := runStages(original, erodeStage, kc, kernelLimit, bias, channel, logger)
		if err != nil {
			return nil, 0, err
		}
		totalChanged += n1 + n2

		stageResult := dilated.Clone()
		if err := compose.Apply(stageResult.Pixels(), eroded.Pixels(), compose.Difference, channel); err != nil {
			return nil, 0, fmt.Errorf("morph: %w", err)
		}

		if combined == nil {
			combined = stageResult
			continue
		}
		merged := combined.Clone()
		if err := compose.Apply(merged.Pixels(), stageResult.Pixels(), combine, channel); err != nil {
			return nil, 0, fmt.Errorf("morph: %w", err)
		}
		combined = merged
	}
	return combined, totalChanged, nil
}

// runStages implements loop items 3-4 for a single kernel-list element:
// apply each stage in order, swapping the work buffer between stages, and
// within each stage invoke the primitive up to kernelLimit times or until
// it stops changing pixels.
func runStages(src *pixel.Buffer, stages []Stage, k *kernel.Kernel, kernelLimit int, bias float64, channel pixel.ChannelMask, logger *slog.Logger) (*pixel.Buffer, int, error) {
	meta := src.Metadata()
	current := src
	totalChanged := 0

	for _, stage := range stages {
		head := *k
		head.Next = nil
		activeKernel := &head
		if stage.UseReflectedList {
			activeKernel = kernel.Reflect(&head)
		}

		for i := 0; i < kernelLimit; i++ {
			work := pixel.NewBuffer(meta.Width, meta.Height, meta.Channels)
			n, err := ApplyPrimitive(work, current, activeKernel, stage.Primitive, channel, bias, logger)
			if err != nil {
				return nil, 0, err
			}
			totalChanged += n
			current = work
			if logger != nil {
				logger.Debug("primitive iteration", "primitive", string(stage.Primitive),
					"reflected", stage.UseReflectedList, "iteration", i, "pixels_changed", n)
			}
			if n == 0 {
				break
			}
		}
	}
	return current, totalChanged, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func report(sink *diagnostics.Sink, kind diagnostics.Kind, severity diagnostics.Severity, message string) {
	if sink != nil {
		sink.Report(kind, severity, message)
	}
}
