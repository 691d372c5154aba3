package deps

import "aerial/internal/config"

// ValidatorRequirements lists the external binaries deep stream validation
// can use. All of them are optional: a missing binary downgrades the
// corresponding validator to a pass-through instead of failing startup.
func ValidatorRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Structural validation of direct streams",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Frame capture for OCR inspection",
			Optional:    true,
		},
		{
			Name:        "Tesseract",
			Command:     cfg.TesseractBinary(),
			Description: "OCR text extraction from captured frames",
			Optional:    true,
		},
	}
}
