package terminal

import (
	"fmt"
	"regexp"
	"strings"
)

// A Matcher reports whether a Screen shows the ready launch screen.
// The string return describes the condition for diagnostics.
type Matcher func(s *Screen) (ok bool, description string)

// Text matches if the screen contains s anywhere.
func Text(s string) Matcher {
	return func(scr *Screen) (bool, string) {
		return scr.Contains(s), fmt.Sprintf("screen to contain %q", s)
	}
}

// Regexp matches if the screen content matches pattern.
// An invalid pattern panics.
func Regexp(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(scr *Screen) (bool, string) {
		return re.MatchString(scr.String()), fmt.Sprintf("screen to match regexp %q", pattern)
	}
}

// LineContains matches if row n (0-indexed) contains substr.
func LineContains(n int, substr string) Matcher {
	return func(scr *Screen) (bool, string) {
		desc := fmt.Sprintf("line %d to contain %q", n, substr)
		if n < 0 || n >= len(scr.lines) {
			return false, desc
		}
		return strings.Contains(scr.lines[n], substr), desc
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return func(scr *Screen) (bool, string) {
		ok, desc := m(scr)
		return !ok, "NOT(" + desc + ")"
	}
}

// All matches when every matcher matches.
func All(matchers ...Matcher) Matcher {
	return func(scr *Screen) (bool, string) {
		descs := make([]string, 0, len(matchers))
		ok := true
		for _, m := range matchers {
			mok, desc := m(scr)
			descs = append(descs, desc)
			if !mok {
				ok = false
				break
			}
		}
		return ok, "all of: " + strings.Join(descs, ", ")
	}
}

// Any matches when at least one matcher matches.
func Any(matchers ...Matcher) Matcher {
	return func(scr *Screen) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(scr)
			descs = append(descs, desc)
			if ok {
				return true, "any of: " + strings.Join(descs, ", ")
			}
		}
		return false, "any of: " + strings.Join(descs, ", ")
	}
}

// Empty matches when the screen has no visible content.
func Empty() Matcher {
	return func(scr *Screen) (bool, string) {
		return strings.TrimSpace(scr.String()) == "", "screen to be empty"
	}
}
