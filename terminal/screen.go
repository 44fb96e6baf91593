package terminal

import (
	"strings"
)

// Screen is an immutable capture of terminal content.
type Screen struct {
	lines  []string
	raw    string
	width  int
	height int
}

// newScreen creates a Screen from raw capture-pane output, normalizing line
// endings and dropping the trailing newline capture-pane emits.
func newScreen(raw string, width, height int) *Screen {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSuffix(raw, "\n")

	return &Screen{
		lines:  strings.Split(raw, "\n"),
		raw:    raw,
		width:  width,
		height: height,
	}
}

// String returns the full screen content.
func (s *Screen) String() string {
	return s.raw
}

// Lines returns a copy of the screen rows.
func (s *Screen) Lines() []string {
	cp := make([]string, len(s.lines))
	copy(cp, s.lines)
	return cp
}

// Contains reports whether the screen contains substr.
func (s *Screen) Contains(substr string) bool {
	return strings.Contains(s.raw, substr)
}

// Size returns the width and height.
func (s *Screen) Size() (width, height int) {
	return s.width, s.height
}

// Equal reports whether two captures show the same content at the same size.
func (s *Screen) Equal(other *Screen) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.raw == other.raw && s.width == other.width && s.height == other.height
}

// Normalized returns the content with trailing spaces and trailing blank
// lines removed and a single final newline, the form stored in artifacts.
func (s *Screen) Normalized() string {
	lines := s.Lines()
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}
