package meet

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DisplayName formats the athlete as "LastName, FirstName".
//
// Names are NFC normalized so that composed and decomposed spellings of the
// same name render and compare identically on every display surface.
func (a Athlete) DisplayName() string {
	last := norm.NFC.String(strings.TrimSpace(a.LastName))
	first := norm.NFC.String(strings.TrimSpace(a.FirstName))
	switch {
	case last == "":
		return first
	case first == "":
		return last
	}
	return last + ", " + first
}
