// morphctl is a CLI exerciser for the morphology engine: load an image,
// apply one morphology method with a parsed kernel, save the result.
// Grounded on the teacher's cmd/app/main.go entry point (flag parsing,
// logrus startup/shutdown banner with a -debug level switch), stripped of
// the Fyne GUI construction the teacher wraps around the same algorithms.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"

	"morphology-engine/internal/config"
	"morphology-engine/internal/diagnostics"
	"morphology-engine/internal/kernel"
	"morphology-engine/internal/morph"
	"morphology-engine/internal/pixel"
	"morphology-engine/internal/pixelio"
)

const (
	appName    = "morphctl"
	appVersion = "1.0.0"
)

func main() {
	inPath := flag.String("in", "", "input image path")
	outPath := flag.String("out", "", "output image path")
	methodName := flag.String("method", "", "morphology method (Erode, Dilate, Open, Close, ...)")
	kernelSpec := flag.String("kernel", "Diamond", "kernel spec (§4.C grammar, e.g. \"Square:1\")")
	iterations := flag.Int("iterations", 1, "iteration count (-1 = until convergence)")
	bias := flag.Float64("bias", 0, "Convolve/Correlate bias")
	convolveScale := flag.String("convolve-scale", "", "convolve:scale artifact geometry")
	composeOverride := flag.String("compose", "", "morphology:compose artifact override")
	showKernel := flag.Bool("showkernel", false, "dump the built kernel before applying it")
	verbose := flag.Bool("verbose", false, "enable per-primitive trace lines")
	debugMode := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version": appVersion,
		"method":  *methodName,
		"kernel":  *kernelSpec,
	}).Info("starting morphctl")

	if err := run(runOptions{
		inPath:          *inPath,
		outPath:         *outPath,
		methodName:      *methodName,
		kernelSpec:      *kernelSpec,
		iterations:      *iterations,
		bias:            *bias,
		convolveScale:   *convolveScale,
		composeOverride: *composeOverride,
		showKernel:      *showKernel,
		verbose:         *verbose,
	}); err != nil {
		logger.WithError(err).Error("morphctl failed")
		os.Exit(1)
	}

	logger.Info("morphctl finished")
	os.Exit(0)
}

type runOptions struct {
	inPath, outPath        string
	methodName, kernelSpec string
	iterations             int
	bias                   float64
	convolveScale          string
	composeOverride        string
	showKernel, verbose    bool
}

func run(opts runOptions) error {
	if opts.inPath == "" || opts.outPath == "" || opts.methodName == "" {
		flag.Usage()
		return errMissingRequiredFlag
	}

	slogLevel := slog.LevelInfo
	if opts.verbose {
		slogLevel = slog.LevelDebug
	}
	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
	sink := diagnostics.NewSink(slogger)

	view, err := pixelio.Load(opts.inPath, slogger)
	if err != nil {
		return err
	}
	defer view.Close()

	kernels, err := kernel.Parse(opts.kernelSpec, kernel.Build, slogger)
	if err != nil {
		return err
	}

	artifacts := config.Artifacts{}
	if opts.convolveScale != "" {
		artifacts["convolve:scale"] = opts.convolveScale
	}
	if opts.composeOverride != "" {
		artifacts["morphology:compose"] = opts.composeOverride
	}
	if opts.showKernel {
		artifacts["showkernel"] = "1"
	}
	if opts.verbose {
		artifacts["verbose"] = "1"
	}

	if err := config.ApplyConvolveScale(kernels, artifacts); err != nil {
		return err
	}
	config.DumpShowKernel(kernels, artifacts, sink, slogger)

	result, err := morph.Apply(
		view, morph.Method(opts.methodName), pixel.AllChannels,
		opts.iterations, kernels, artifacts.Compose(), opts.bias, sink, slogger,
	)
	if err != nil {
		return err
	}
	if result == nil {
		slogger.Info("zero iterations requested, nothing written", "path", opts.outPath)
		return nil
	}

	out := pixelio.NewBlankMat(result.Metadata())
	defer out.Close()
	outView, err := pixelio.NewMatView(out, slogger)
	if err != nil {
		return err
	}
	meta := result.Metadata()
	if err := outView.Sync(0, 0, meta.Width, meta.Height, result.Pixels()); err != nil {
		return err
	}
	return pixelio.Save(opts.outPath, outView)
}

var errMissingRequiredFlag = &usageError{"morphctl: -in, -out and -method are required"}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// initLogger mirrors the teacher's cmd/app/main.go initLogger: colored
// text output with full timestamps under -debug, structured JSON otherwise.
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
