// Command testbin is a launch-screen fixture for the terminal driver tests.
//
// Behavior, selected by the first argument:
//   - (none): prints a splash, then the sign-in screen, then waits on stdin
//   - "slow": like the default, after a 300ms splash
//   - "spinner": redraws a spinner forever and never settles
//   - "crash": prints a message and exits with status 3
//   - "env": prints COLORFGBG and LANG, then waits on stdin
//   - "prompt": waits for Enter before showing the sign-in screen
//
// "quit" on stdin exits with status 0.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

func main() {
	mode := ""
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "crash":
		fmt.Println("fatal: no configuration")
		os.Exit(3)

	case "spinner":
		frames := []string{"|", "/", "-", "\\"}
		for i := 0; ; i++ {
			fmt.Printf("\rLoading %s %d", frames[i%len(frames)], i)
			time.Sleep(20 * time.Millisecond)
		}

	case "env":
		fmt.Printf("COLORFGBG=%s\n", os.Getenv("COLORFGBG"))
		fmt.Printf("LANG=%s\n", os.Getenv("LANG"))
		waitForQuit()

	case "prompt":
		fmt.Print("Press Enter to continue")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		fmt.Print("\033[H\033[2J")
		signIn()
		waitForQuit()

	case "slow":
		fmt.Print("Starting...")
		time.Sleep(300 * time.Millisecond)
		fmt.Print("\033[H\033[2J")
		signIn()
		waitForQuit()

	default:
		signIn()
		waitForQuit()
	}
}

func signIn() {
	fmt.Println("Welcome")
	fmt.Println("  [ Sign in with Apple ]")
	fmt.Println("  [ Sign in with Google ]")
}

func waitForQuit() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if scanner.Text() == "quit" {
			os.Exit(0)
		}
	}
	// stdin closed; stay up until killed.
	for {
		time.Sleep(time.Hour)
	}
}
