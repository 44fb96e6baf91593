package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cboone/launchprobe"
)

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"3.4", true},
		{"3.0", true},
		{"3.3a", true},
		{"next-3.5", true},
		{"4.0", true},
		{"2.9", false},
		{"2.9a", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, versionAtLeast(tt.version, minTmuxVersion), tt.version)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "dark_fr-FR", sanitizeName("dark fr-FR"))
	assert.Equal(t, "a_b_c", sanitizeName("a/b:c"))
	assert.Len(t, sanitizeName(strings.Repeat("x", 100)), 40)
}

func TestGenerateSocketPathUnique(t *testing.T) {
	a, err := generateSocketPath("light")
	assert.NoError(t, err)
	b, err := generateSocketPath("light")
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "launchprobe-light-")
}

func TestSessionSpecCommand(t *testing.T) {
	spec := sessionSpec{binary: "/bin/app", args: []string{"--flag"}}
	bin, args := spec.command()
	assert.Equal(t, "/bin/app", bin)
	assert.Equal(t, []string{"--flag"}, args)

	spec.env = []string{"A=1"}
	bin, args = spec.command()
	assert.Equal(t, "/usr/bin/env", bin)
	assert.Equal(t, []string{"A=1", "/bin/app", "--flag"}, args)
}

func TestSessionSpecMergesConfiguration(t *testing.T) {
	l := NewLauncher("app", WithArgs("base"), WithEnv("BASE=1"), WithDir("/srv"), WithSize(120, 40))

	spec := l.sessionSpec("/bin/app", launchprobe.Configuration{
		Args:       []string{"--dark"},
		Env:        []string{"EXTRA=1"},
		Appearance: launchprobe.AppearanceDark,
		Locale:     "ja_JP.eucJP",
	})
	assert.Equal(t, []string{"base", "--dark"}, spec.args)
	assert.Equal(t, []string{"BASE=1", "COLORFGBG=15;0", "LANG=ja_JP.eucJP", "LC_ALL=ja_JP.eucJP", "EXTRA=1"}, spec.env)
	assert.Equal(t, "/srv", spec.dir)
	assert.Equal(t, 120, spec.width)
	assert.Equal(t, 40, spec.height)

	spec = l.sessionSpec("/bin/app", launchprobe.Configuration{Dir: "/tmp", Width: 90, Height: 30})
	assert.Equal(t, "/tmp", spec.dir)
	assert.Equal(t, 90, spec.width)
	assert.Equal(t, 30, spec.height)
}

func TestScreenNormalizedAndEqual(t *testing.T) {
	scr := newScreen("Welcome   \n  [ Sign in ]  \n\n\n", 80, 24)
	assert.Equal(t, "Welcome\n  [ Sign in ]\n", scr.Normalized())

	same := newScreen("Welcome   \r\n  [ Sign in ]  \r\n\r\n\r\n", 80, 24)
	assert.True(t, scr.Equal(same))
	assert.False(t, scr.Equal(newScreen("Welcome", 80, 24)))
	assert.False(t, scr.Equal(nil))
	assert.False(t, scr.Equal(newScreen(scr.String()+"\n", 100, 24)))
}

func TestMatchers(t *testing.T) {
	scr := newScreen("Welcome\n  [ Sign in with Apple ]\n", 80, 24)

	check := func(m Matcher) bool {
		ok, desc := m(scr)
		assert.NotEmpty(t, desc)
		return ok
	}

	assert.True(t, check(Text("Sign in")))
	assert.False(t, check(Text("Dashboard")))
	assert.True(t, check(Regexp(`Sign in with (Apple|Google)`)))
	assert.True(t, check(LineContains(1, "Apple")))
	assert.False(t, check(LineContains(7, "Apple")))
	assert.True(t, check(Not(Empty())))
	assert.True(t, check(All(Text("Welcome"), Text("Apple"))))
	assert.False(t, check(All(Text("Welcome"), Text("Google"))))
	assert.True(t, check(Any(Text("Google"), Text("Apple"))))
	blank, _ := Empty()(newScreen("   \n  \n", 80, 24))
	assert.True(t, blank)
}

func TestFormatRecentScreens(t *testing.T) {
	assert.Equal(t, "    (no screen captured)", formatRecentScreens(nil))

	screens := appendRecentScreens(nil, newScreen("one", 5, 1), 2)
	screens = appendRecentScreens(screens, nil, 2)
	screens = appendRecentScreens(screens, newScreen("two", 5, 1), 2)
	screens = appendRecentScreens(screens, newScreen("three", 5, 1), 2)
	assert.Len(t, screens, 2)

	out := formatRecentScreens(screens)
	assert.Contains(t, out, "capture 1/2:")
	assert.Contains(t, out, "│two  │")
	assert.Contains(t, out, "│three│")
	assert.NotContains(t, out, "one")
}

func TestConfigurationEnvDefault(t *testing.T) {
	assert.Empty(t, configurationEnv(launchprobe.Configuration{}))
	assert.Equal(t, []string{"COLORFGBG=0;15"}, configurationEnv(launchprobe.Configuration{Appearance: launchprobe.AppearanceLight}))
}
