package terminal

import "fmt"

// Key is a tmux key name sent with send-keys.
type Key string

// Keys commonly needed to get past a splash or prompt.
const (
	Enter  Key = "Enter"
	Escape Key = "Escape"
	Tab    Key = "Tab"
	Space  Key = "Space"
	Up     Key = "Up"
	Down   Key = "Down"
)

// Ctrl returns the key for Ctrl+<c>.
func Ctrl(c byte) Key {
	return Key(fmt.Sprintf("C-%c", c))
}

func keyNames(keys []Key) []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return names
}
