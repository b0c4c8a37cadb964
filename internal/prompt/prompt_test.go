package prompt

import (
	"strings"
	"testing"
	"time"
)

var fixed = time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

func TestForTextDeterministic(t *testing.T) {
	a := ForText(fixed, "Dinner with Alex tomorrow at 7pm")
	b := ForText(fixed, "Dinner with Alex tomorrow at 7pm")
	if a != b {
		t.Fatalf("prompt not deterministic:\n%q\n%q", a, b)
	}
}

func TestDirectivesPresent(t *testing.T) {
	p := ForText(fixed, "x")
	for _, want := range []string{
		"according to the iCal specification",
		"Return nothing but that text",
		"fill it in from the current date, which is 2025-03-14",
		"make it an all-day event",
		"Europe/Berlin",
		"spanning multiple days, and recurring events",
		"assume one hour duration",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing directive %q", want)
		}
	}
}

func TestDateReflectsInvocationTime(t *testing.T) {
	other := time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC)
	p := ForText(other, "x")
	if !strings.Contains(p, "2026-08-23") {
		t.Fatalf("prompt does not carry the invocation date: %q", p)
	}
	if strings.Contains(p, "2025-03-14") {
		t.Fatal("prompt carries a stale date")
	}
}

func TestModalityFraming(t *testing.T) {
	img := ForImage(fixed)
	if !strings.HasPrefix(img, "The following is a picture containing information for an event.") {
		t.Errorf("image prompt missing picture framing: %q", img)
	}
	if !strings.HasSuffix(img, "The image is shown below.") {
		t.Errorf("image prompt missing trailing frame: %q", img)
	}

	txt := ForText(fixed, "BBQ at noon")
	if !strings.HasPrefix(txt, "The following is the textual description of an event.") {
		t.Errorf("text prompt missing text framing: %q", txt)
	}
	if !strings.HasSuffix(txt, "The text is:\n\nBBQ at noon") {
		t.Errorf("text prompt does not append the literal input: %q", txt)
	}
}
