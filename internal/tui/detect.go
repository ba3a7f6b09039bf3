package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode tells whether prompts and wizards may be shown.
type Mode int

const (
	ModeNonInteractive Mode = iota
	ModeInteractive
)

// automated reports whether the environment asks for plain, prompt-free runs.
func automated() bool {
	return os.Getenv("DBOBJ_NON_INTERACTIVE") == "1" || os.Getenv("CI") != "" || os.Getenv("NO_COLOR") != ""
}

// DetectMode is interactive only when both stdin and stdout are terminals and
// neither DBOBJ_NON_INTERACTIVE=1, CI nor NO_COLOR is set.
func DetectMode() Mode {
	if automated() || !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeNonInteractive
	}
	return ModeInteractive
}

func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}

// StyledOutput reports whether reports on stdout get color. Piped stdin does
// not matter here; CI alone does not disable color.
func StyledOutput() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("DBOBJ_NON_INTERACTIVE") == "1" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
