// Package color paints terminal output with ANSI escapes when stdout is a terminal.
package color

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Color is an ANSI SGR escape sequence.
type Color string

const (
	Reset Color = "\033[0m"
	Bold  Color = "\033[1m"

	Red       Color = "\033[31m"
	Green     Color = "\033[32m"
	Yellow    Color = "\033[33m"
	Blue      Color = "\033[34m"
	Cyan      Color = "\033[36m"
	Gray      Color = "\033[90m"
	BrightRed Color = "\033[91m"
)

var colorEnabled = os.Getenv("NO_COLOR") == "" && isTerminal()

func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func EnableColor(enable bool) {
	colorEnabled = enable
}

func IsColorEnabled() bool {
	return colorEnabled
}

// Paint wraps text in c, or returns it unchanged when color is disabled
func (c Color) Paint(text string) string {
	if !colorEnabled {
		return text
	}
	return string(c) + text + string(Reset)
}

func RedText(text string) string       { return Red.Paint(text) }
func BrightRedText(text string) string { return BrightRed.Paint(text) }
func GreenText(text string) string     { return Green.Paint(text) }
func YellowText(text string) string    { return Yellow.Paint(text) }
func BlueText(text string) string      { return Blue.Paint(text) }
func CyanText(text string) string      { return Cyan.Paint(text) }
func GrayText(text string) string      { return Gray.Paint(text) }
