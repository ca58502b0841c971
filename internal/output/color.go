package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorMode is the value of the --color flag.
type ColorMode string

// Supported color modes.
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a --color value. Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return mode, nil
	}
	return "", NewUserError(fmt.Sprintf("invalid --color %q: use auto, always or never", s))
}

// Colorize reports whether output written to w gets styled. In auto mode
// only terminals are styled, and NO_COLOR turns styling off.
func (m ColorMode) Colorize(w io.Writer) bool {
	switch m {
	case ColorNever:
		return false
	case ColorAlways:
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTTY(w)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	return isTerminal(w)
}

// IsInteractive reports whether r is a terminal a prompt can read from.
func IsInteractive(r io.Reader) bool {
	return isTerminal(r)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
