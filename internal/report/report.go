// Package report writes run results to a directory: one file per attachment
// and a results.json manifest describing every run.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
)

// ManifestName is the manifest file written at the root of the directory.
const ManifestName = "results.json"

// Entry describes one run in the manifest.
type Entry struct {
	RunID         string       `json:"run_id"`
	Configuration string       `json:"configuration"`
	Status        string       `json:"status"`
	FinalState    string       `json:"final_state"`
	Error         string       `json:"error,omitempty"`
	TeardownError string       `json:"teardown_error,omitempty"`
	StartedAt     time.Time    `json:"started_at"`
	DurationMS    int64        `json:"duration_ms"`
	Attachments   []FileRecord `json:"attachments"`
}

// FileRecord describes one attachment written to disk. Path is relative to
// the report directory.
type FileRecord struct {
	Name        string                `json:"name"`
	Retention   launchprobe.Retention `json:"retention"`
	ContentType string                `json:"content_type"`
	Width       int                   `json:"width,omitempty"`
	Height      int                   `json:"height,omitempty"`
	CapturedAt  time.Time             `json:"captured_at"`
	Path        string                `json:"path"`
	Size        int                   `json:"size"`
}

// Dir is a launchprobe.Sink that stores results under a directory.
type Dir struct {
	root string
	log  *zap.Logger

	mu      sync.Mutex
	entries []Entry
}

var _ launchprobe.Sink = (*Dir)(nil)

// NewDir creates root if needed and returns a sink writing into it.
func NewDir(root string, log *zap.Logger) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("report: create %s: %w", root, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dir{root: root, log: log.Named("report")}, nil
}

// Root returns the report directory.
func (d *Dir) Root() string {
	return d.root
}

// Entries returns the manifest entries recorded so far.
func (d *Dir) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Report implements launchprobe.Sink. It writes the run's attachments and
// rewrites the manifest.
func (d *Dir) Report(ctx context.Context, res *launchprobe.RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := Entry{
		RunID:         res.RunID,
		Configuration: res.Configuration.Name,
		Status:        string(res.Status),
		FinalState:    res.FinalState.String(),
		StartedAt:     res.StartedAt,
		DurationMS:    res.Duration.Milliseconds(),
		Attachments:   []FileRecord{},
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if res.TeardownErr != nil {
		entry.TeardownError = res.TeardownErr.Error()
	}

	if len(res.Attachments) > 0 {
		rel := runDir(res)
		if err := os.MkdirAll(filepath.Join(d.root, rel), 0o755); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		for _, a := range res.Attachments {
			path := filepath.Join(rel, slug(a.Name)+extension(a.Artifact.ContentType))
			if err := os.WriteFile(filepath.Join(d.root, path), a.Artifact.Data, 0o644); err != nil {
				return fmt.Errorf("report: write attachment: %w", err)
			}
			entry.Attachments = append(entry.Attachments, FileRecord{
				Name:        a.Name,
				Retention:   a.Retention,
				ContentType: a.Artifact.ContentType,
				Width:       a.Artifact.Width,
				Height:      a.Artifact.Height,
				CapturedAt:  a.Artifact.CapturedAt,
				Path:        filepath.ToSlash(path),
				Size:        len(a.Artifact.Data),
			})
			d.log.Debug("attachment written",
				zap.String("run_id", res.RunID),
				zap.String("path", path),
			)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entry)
	return d.writeManifest()
}

// writeManifest replaces the manifest atomically. Callers hold d.mu.
func (d *Dir) writeManifest() error {
	data, err := json.MarshalIndent(struct {
		Runs []Entry `json:"runs"`
	}{d.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(d.root, ManifestName+".*")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("report: write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.root, ManifestName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: write manifest: %w", err)
	}
	return nil
}

// runDir names a run's directory after its configuration and the start of
// its ID, so repeated configuration names never collide.
func runDir(res *launchprobe.RunResult) string {
	id := res.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return slug(res.Configuration.Name) + "-" + id
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "run"
	}
	return out
}

func extension(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "text/plain"):
		return ".txt"
	}
	return ".bin"
}
