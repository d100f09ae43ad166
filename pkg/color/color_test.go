package color

import "testing"

func TestColorize(t *testing.T) {
	prev := IsColorEnabled()
	defer EnableColor(prev)

	EnableColor(true)
	if got := RedText("x"); got != string(Red)+"x"+string(Reset) {
		t.Errorf("RedText = %q", got)
	}

	EnableColor(false)
	for _, f := range []func(string) string{RedText, BrightRedText, GreenText, YellowText, BlueText, CyanText, GrayText} {
		if got := f("plain"); got != "plain" {
			t.Errorf("colored %q with color disabled", got)
		}
	}
}
