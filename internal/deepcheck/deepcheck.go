// Package deepcheck runs optional deep validation of direct stream URLs.
//
// Streams without a manifest extension can look alive over HTTP while
// serving nothing playable. Two validators catch that: a structural check
// asks ffprobe for decodable audio/video streams, and a visual check
// captures a frame with ffmpeg and scans it with tesseract for block
// phrases like login walls or geo notices.
//
// Both validators are capability-checked once at construction. A missing
// binary downgrades its validator to a pass-through, and tool failures
// during the visual check pass rather than veto, so deep validation can
// only ever remove streams it has positively inspected.
package deepcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"aerial/internal/config"
	"aerial/internal/deps"
	"aerial/internal/ffprobe"
	"aerial/internal/logging"
)

// ocrLanguages covers the scripts block phrases are written in.
const ocrLanguages = "eng+chi_sim"

// Check is the outcome of one validator. Applied is false when the validator
// is disabled or its tools are missing, in which case Passed carries no
// meaning.
type Check struct {
	Applied bool
	Passed  bool
	Detail  string
}

// Suite bundles the configured validators.
type Suite struct {
	logger *slog.Logger

	structural bool
	visual     bool

	ffprobeBinary   string
	ffmpegBinary    string
	tesseractBinary string

	userAgent         string
	structuralTimeout time.Duration
	visualTimeout     time.Duration
	blockPhrases      []string
}

// NewSuite builds the validator suite, probing binary availability once.
// Unavailable tools are logged and their validators disabled.
func NewSuite(cfg *config.Config, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = logging.NewNop()
	}
	suite := &Suite{
		logger:            logger.With(logging.String(logging.FieldComponent, "deepcheck")),
		structural:        cfg.Validators.StructuralEnabled,
		visual:            cfg.Validators.VisualEnabled,
		ffprobeBinary:     cfg.FFprobeBinary(),
		ffmpegBinary:      cfg.FFmpegBinary(),
		tesseractBinary:   cfg.TesseractBinary(),
		userAgent:         cfg.Probe.UserAgent,
		structuralTimeout: time.Duration(cfg.Validators.StructuralTimeout) * time.Second,
		visualTimeout:     time.Duration(cfg.Validators.VisualTimeout) * time.Second,
		blockPhrases:      append([]string(nil), cfg.Validators.BlockPhrases...),
	}

	statuses := deps.CheckBinaries(deps.ValidatorRequirements(cfg))
	available := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		available[status.Name] = status.Available
	}
	if suite.structural && !available["FFprobe"] {
		suite.structural = false
		suite.logger.Info("structural validation disabled", logging.String("reason", "ffprobe not found"))
	}
	if suite.visual && (!available["FFmpeg"] || !available["Tesseract"]) {
		suite.visual = false
		suite.logger.Info("visual validation disabled", logging.String("reason", "ffmpeg or tesseract not found"))
	}
	return suite
}

// Capabilities reports which validators are active.
func (s *Suite) Capabilities() (structural, visual bool) {
	return s.structural, s.visual
}

// Structural verifies the stream carries decodable audio or video. A failed
// inspection vetoes the stream: ffprobe reaching nothing playable is exactly
// the condition this validator exists to catch.
func (s *Suite) Structural(ctx context.Context, url string) Check {
	if !s.structural {
		return Check{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.structuralTimeout+2*time.Second)
	defer cancel()

	result, err := ffprobe.Inspect(ctx, s.ffprobeBinary, url, ffprobe.Options{
		UserAgent: s.userAgent,
		Timeout:   s.structuralTimeout,
	})
	if err != nil {
		s.logger.Debug("structural check failed", logging.String("url", url), logging.Error(err))
		return Check{Applied: true, Passed: false, Detail: "ffprobe inspection failed"}
	}
	if !result.HasPlayableStream() {
		return Check{Applied: true, Passed: false, Detail: "no playable audio or video stream"}
	}
	return Check{Applied: true, Passed: true}
}

// Visual captures one frame and scans its text for block phrases. Capture or
// OCR failures pass through; only a recognized phrase vetoes the stream.
func (s *Suite) Visual(ctx context.Context, url string) Check {
	if !s.visual {
		return Check{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.visualTimeout+2*time.Second)
	defer cancel()

	frame, err := os.CreateTemp("", "aerial-frame-*.png")
	if err != nil {
		return Check{Applied: true, Passed: true, Detail: "frame file unavailable"}
	}
	framePath := frame.Name()
	frame.Close()
	defer os.Remove(framePath)

	capture := exec.CommandContext(ctx, s.ffmpegBinary,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", url, "-ss", "1", "-vframes", "1", framePath)
	if output, err := capture.CombinedOutput(); err != nil {
		s.logger.Debug("frame capture failed",
			logging.String("url", url),
			logging.String("output", strings.TrimSpace(string(output))),
			logging.Error(err))
		return Check{Applied: true, Passed: true, Detail: "frame capture failed"}
	}

	ocr := exec.CommandContext(ctx, s.tesseractBinary, framePath, "stdout", "-l", ocrLanguages)
	output, err := ocr.Output()
	if err != nil {
		s.logger.Debug("ocr failed", logging.String("url", url), logging.Error(err))
		return Check{Applied: true, Passed: true, Detail: "ocr failed"}
	}

	text := strings.ToLower(string(output))
	for _, phrase := range s.blockPhrases {
		if strings.Contains(text, strings.ToLower(phrase)) {
			s.logger.Debug("block phrase detected",
				logging.String("url", url),
				logging.String("phrase", phrase))
			return Check{Applied: true, Passed: false, Detail: fmt.Sprintf("screen shows %q", phrase)}
		}
	}
	return Check{Applied: true, Passed: true}
}
