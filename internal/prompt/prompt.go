// Package prompt builds the natural-language instruction block sent to
// the extraction model. Builders are pure: the same timestamp, modality
// and input always produce byte-identical text.
package prompt

import (
	"fmt"
	"time"
)

// common returns the shared instruction block, parameterized only by the
// invocation date. The current date must always reflect the actual call
// time so the model can resolve relative dates like "tomorrow".
func common(now time.Time) string {
	return fmt.Sprintf(`Extract the information and format it in text format according to the iCal specification.
Return nothing but that text.
If date info is missing, such as the current year, month or day, fill it in from the current date, which is %s.
If no wall clock time is mentioned, make it an all-day event.
Assume event times are in Europe/Berlin aka CEST timezone.
Pay attention to events spanning multiple days, and recurring events.
If only a start time is mentioned but no end time, assume one hour duration.`,
		now.UTC().Format("2006-01-02"))
}

// ForImage returns the instruction text that precedes an inlined image.
func ForImage(now time.Time) string {
	return fmt.Sprintf("The following is a picture containing information for an event. %s\nThe image is shown below.", common(now))
}

// ForText returns the instruction text with the literal event description
// appended after the instruction block.
func ForText(now time.Time, text string) string {
	return fmt.Sprintf("The following is the textual description of an event. %s\nThe text is:\n\n%s", common(now), text)
}
