package launchprobe

import (
	"fmt"
	"time"
)

// LaunchScreenName is the display name of the attachment produced by a
// passing run.
const LaunchScreenName = "Launch Screen"

// Content types produced by the built-in drivers.
const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Retention governs whether an attachment survives a successful run.
type Retention int

const (
	// KeepAlways exempts an attachment from success-based pruning.
	KeepAlways Retention = iota + 1
)

func (r Retention) String() string {
	if r == KeepAlways {
		return "keep-always"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r Retention) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Retention) UnmarshalText(text []byte) error {
	if string(text) != KeepAlways.String() {
		return fmt.Errorf("unknown retention %q", text)
	}
	*r = KeepAlways
	return nil
}

// Surface is what a driver returns from Application.Capture.
type Surface struct {
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Artifact is a captured snapshot of the application surface.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	CapturedAt  time.Time
}

// Attachment binds an Artifact to the run that produced it. Attachments are
// values; they are not modified after creation.
type Attachment struct {
	RunID     string
	Name      string
	Retention Retention
	Artifact  Artifact
}
