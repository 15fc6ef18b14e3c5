// Package outcome extracts and classifies the fields of a finalized result
// announcement. Everything in this package is pure: no state, no I/O.
package outcome

import (
	"regexp"
	"strconv"
)

var (
	groupPattern  = regexp.MustCompile(`\(([^)]*)\)`)
	gamePattern   = regexp.MustCompile(`#N(\d+)`)
	ticketPattern = regexp.MustCompile(`#T(\d+)`)
)

// Outcome holds the raw fields parsed from one announcement.
type Outcome struct {
	Groups    []string // at most two, in order of appearance
	Game      int
	HasGame   bool
	Ticket    int
	HasTicket bool
}

// Parse extracts every field it can find. Missing fields are left unset.
func Parse(text string) Outcome {
	o := Outcome{Groups: ExtractGroups(text)}
	o.Game, o.HasGame = ExtractGameNumber(text)
	o.Ticket, o.HasTicket = ExtractTicketNumber(text)
	return o
}

// ExtractGroups returns the contents of the first two parenthesized groups.
// It returns fewer than two when the text does not have them.
func ExtractGroups(text string) []string {
	matches := groupPattern.FindAllStringSubmatch(text, 2)
	groups := make([]string, 0, len(matches))
	for _, m := range matches {
		groups = append(groups, m[1])
	}
	return groups
}

// ExtractGameNumber returns the number following the first #N marker.
func ExtractGameNumber(text string) (int, bool) {
	return firstNumber(gamePattern, text)
}

// ExtractTicketNumber returns the number following the first #T marker.
func ExtractTicketNumber(text string) (int, bool) {
	return firstNumber(ticketPattern, text)
}

func firstNumber(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		// Overflowing or zero markers are treated as absent.
		return 0, false
	}
	return n, true
}
