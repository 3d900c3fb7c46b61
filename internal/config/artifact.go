// Package config parses the §6 configuration knobs (convolve:scale,
// showkernel/convolve:showkernel/morphology:showkernel, morphology:compose,
// verbose) the same way the teacher's internal/algorithms.Algorithm
// implementations expose a self-describing map[string]interface{} of
// parameters: here the bag is map[string]string, the shape the original
// ImageMagick CLI used for "-set option:name value" image artifacts, which
// is what morphology.c's MorphologyApply itself reads these knobs from
// (GetImageArtifact).
package config

import (
	"fmt"
	"log/slog"

	"morphology-engine/internal/compose"
	"morphology-engine/internal/diagnostics"
	"morphology-engine/internal/kernel"
)

// Artifacts is the configuration-knob bag threaded down from the
// command-line/caller to the kernel builder and method dispatcher.
type Artifacts map[string]string

// showKernelKeys lists the three equivalent spellings §6 accepts; the first
// one present wins, matching morphology.c's GetImageArtifact fallback chain.
var showKernelKeys = []string{"showkernel", "convolve:showkernel", "morphology:showkernel"}

// ShowKernel reports whether any of the showkernel spellings is set.
func (a Artifacts) ShowKernel() bool {
	for _, key := range showKernelKeys {
		if _, ok := a[key]; ok {
			return true
		}
	}
	return false
}

// Verbose reports whether the verbose artifact is set to anything other
// than an explicit "false"/"0".
func (a Artifacts) Verbose() bool {
	v, ok := a["verbose"]
	return ok && v != "false" && v != "0"
}

// Compose returns the morphology:compose override, or "" if the artifact
// is unset (meaning: use the method's default combiner).
func (a Artifacts) Compose() compose.Op {
	v, ok := a["morphology:compose"]
	if !ok {
		return ""
	}
	return compose.Op(v)
}

// ApplyConvolveScale applies the convolve:scale knob to kernels in place,
// grounded on ScaleGeometryKernelInfo (morphology.c:3274): the geometry's
// first number (rho) is handed to kernel.Scale, with '!' selecting
// ScaleNormalize and '^' selecting ScaleCorrelateNormalize (the original
// comments these geometry modifiers onto ScaleKernelInfo's normalize_flags
// directly); the second number (sigma), if present, is then blended in via
// kernel.UnityAdd. Missing rho defaults to 1.0 (scale unchanged); missing
// sigma means no unity blend, matching ScaleGeometryKernelInfo's defaults.
// A no-op (not an error) if the artifact is absent.
func ApplyConvolveScale(kernels *kernel.Kernel, artifacts Artifacts) error {
	raw, ok := artifacts["convolve:scale"]
	if !ok || raw == "" {
		return nil
	}
	geom, err := kernel.ParseGeometry(raw)
	if err != nil {
		return fmt.Errorf("config: convolve:scale: %w", err)
	}

	rho, sigma := geom.Rho, geom.Sigma
	if geom.Has(kernel.FlagPercent) {
		rho *= 0.01
		sigma *= 0.01
	}
	if !geom.Has(kernel.FlagRho) {
		rho = 1.0
	}
	sigmaSet := geom.Has(kernel.FlagSigma)
	if !sigmaSet {
		sigma = 0.0
	}

	var flags kernel.ScaleFlag
	if geom.Has(kernel.FlagAspect) {
		flags |= kernel.ScaleNormalize
	}
	if geom.Has(kernel.FlagExpand90) {
		flags |= kernel.ScaleCorrelateNormalize
	}

	kernel.Scale(kernels, rho, flags)
	if sigmaSet {
		kernel.UnityAdd(kernels, sigma)
	}
	return nil
}

// DumpShowKernel renders kernels via kernel.ShowKernel and routes the
// result to sink/logger when any showkernel artifact is set, matching
// morphology.c's "display the (normalized) kernel via stderr" step, which
// runs immediately after convolve:scale is applied.
func DumpShowKernel(kernels *kernel.Kernel, artifacts Artifacts, sink *diagnostics.Sink, logger *slog.Logger) {
	if !artifacts.ShowKernel() {
		return
	}
	dump := kernel.ShowKernel(kernels)
	if sink != nil {
		sink.Report(diagnostics.KindKernelDump, diagnostics.SeverityInfo, "showkernel: "+dump)
	}
	if logger != nil {
		logger.Debug("kernel dump", "kernel", dump)
	}
}
