package probe

import "time"

// Kind classifies what a probed URL turned out to be.
type Kind string

const (
	// KindMaster is an HLS master playlist carrying variant streams.
	KindMaster Kind = "master"
	// KindMedia is an HLS media playlist referencing transport segments.
	KindMedia Kind = "media"
	// KindHLS is a structurally valid playlist of neither specific shape.
	KindHLS Kind = "hls"
	// KindDead is an endpoint that answered wrongly or failed validation.
	KindDead Kind = "dead"
	// KindNotStream is a reachable URL serving non-playlist content.
	KindNotStream Kind = "not_stream"
	// KindError is a transport-level failure.
	KindError Kind = "error"
)

// Verdict is the outcome of probing one endpoint.
type Verdict struct {
	Alive   bool
	Latency time.Duration
	Kind    Kind
	Reason  string
}
