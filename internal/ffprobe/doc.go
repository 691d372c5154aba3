// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no aerial-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, bitrate)
//
// Primary entry point:
//   - Inspect: executes ffprobe against a URL or path and returns a Result
//
// Helper methods on Result expose stream counts and playability so deep
// validation does not reparse the JSON.
package ffprobe
