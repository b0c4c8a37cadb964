// Package ical holds the advisory sanity check applied to model output.
// A failed check is logged by the caller, never surfaced to the client:
// downstream calendar clients may tolerate minor format deviations.
package ical

import (
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// Validate attempts a best-effort parse of content as an iCalendar
// document. Each VEVENT carrying an RRULE additionally gets its rule
// string parsed. All findings are joined into one error; nil means the
// content parsed cleanly.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("empty calendar content")
	}

	cal, err := ical.ParseCalendar(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse calendar: %w", err)
	}

	var findings []error
	for _, ve := range cal.Events() {
		uid := ""
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			uid = p.Value
		}

		if p := ve.GetProperty(ical.ComponentPropertyDtStart); p == nil || p.Value == "" {
			findings = append(findings, fmt.Errorf("event %q: missing DTSTART", uid))
		}

		if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
			if _, rerr := rrule.StrToRRule(p.Value); rerr != nil {
				findings = append(findings, fmt.Errorf("event %q: bad RRULE %q: %w", uid, p.Value, rerr))
			}
		}
	}

	return errors.Join(findings...)
}
