package outcome

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker glyphs used by the upstream announcements.
const (
	Checkmark  = "\u2705"     // ✅ winner indicator
	TieGlyph   = "\U0001F530" // 🔰 draw indicator
	AlarmClock = "\u23F0"     // ⏰ pending
	ClockFace  = "\U0001F550" // 🕐 pending
)

var (
	// #N1127. ✅7(
	playerWinPattern = regexp.MustCompile(`#N\d+[.,:;!]?\s*\x{2705}\x{FE0F}?\d+\(`)
	// - ✅3(
	bankerWinPattern = regexp.MustCompile(`-\s*\x{2705}\x{FE0F}?\d+\(`)
)

// PairCategory is the hand-size pairing, player count first.
type PairCategory int

const (
	Pair32 PairCategory = iota
	Pair33
	Pair22
	Pair23
	NumPairs
)

// PairOrder is the fixed display order of the pairing categories.
var PairOrder = [NumPairs]PairCategory{Pair32, Pair33, Pair22, Pair23}

// PairOf maps a pair of valid hand counts to its category.
func PairOf(player, banker int) (PairCategory, bool) {
	switch {
	case player == 3 && banker == 2:
		return Pair32, true
	case player == 3 && banker == 3:
		return Pair33, true
	case player == 2 && banker == 2:
		return Pair22, true
	case player == 2 && banker == 3:
		return Pair23, true
	}
	return 0, false
}

// Counts returns the player and banker card counts of the category.
func (p PairCategory) Counts() (player, banker int) {
	switch p {
	case Pair32:
		return 3, 2
	case Pair33:
		return 3, 3
	case Pair22:
		return 2, 2
	case Pair23:
		return 2, 3
	}
	return 0, 0
}

func (p PairCategory) String() string {
	player, banker := p.Counts()
	if player == 0 {
		return fmt.Sprintf("PairCategory(%d)", int(p))
	}
	return fmt.Sprintf("%d/%d", player, banker)
}

// WinnerCategory is the side that won the round.
type WinnerCategory int

const (
	Player WinnerCategory = iota
	Banker
	Tie
	NumWinners
)

func (w WinnerCategory) String() string {
	switch w {
	case Player:
		return "player"
	case Banker:
		return "banker"
	case Tie:
		return "tie"
	}
	return fmt.Sprintf("WinnerCategory(%d)", int(w))
}

// ParityCategory is the parity of the ticket number.
type ParityCategory int

const (
	Odd ParityCategory = iota
	Even
	NumParities
)

func (p ParityCategory) String() string {
	switch p {
	case Odd:
		return "odd"
	case Even:
		return "even"
	}
	return fmt.Sprintf("ParityCategory(%d)", int(p))
}

// Classification is the result of classifying one message. Each dimension is
// independent and may be absent.
type Classification struct {
	Pair      PairCategory
	HasPair   bool
	Winner    WinnerCategory
	HasWinner bool
	Parity    ParityCategory
	HasParity bool
	Game      int
	HasGame   bool
}

// Empty reports whether no dimension was classified.
func (c Classification) Empty() bool {
	return !c.HasPair && !c.HasWinner && !c.HasParity
}

// Classify parses text and runs all three classifications.
func Classify(text string) Classification {
	o := Parse(text)

	var c Classification
	if len(o.Groups) == 2 {
		c.Pair, c.HasPair = ClassifyPair(o.Groups[0], o.Groups[1])
	}
	c.Winner, c.HasWinner = ClassifyWinner(text)
	if o.HasTicket {
		c.Parity, c.HasParity = parityOf(o.Ticket), true
	}
	c.Game, c.HasGame = o.Game, o.HasGame
	return c
}

// ClassifyPair counts both hands and returns their pairing when both are valid.
func ClassifyPair(player, banker string) (PairCategory, bool) {
	return PairOf(CountHand(player), CountHand(banker))
}

// ClassifyWinner reads the winner from the marker positions. A tie glyph
// anywhere takes priority; otherwise the checkmark must precede the digits
// opening the first group (player) or the second group (banker).
func ClassifyWinner(text string) (WinnerCategory, bool) {
	if strings.Contains(text, TieGlyph) {
		return Tie, true
	}
	if playerWinPattern.MatchString(text) {
		return Player, true
	}
	if bankerWinPattern.MatchString(text) {
		return Banker, true
	}
	return 0, false
}

// ClassifyParity returns the parity of the #T ticket number, if any.
func ClassifyParity(text string) (ParityCategory, bool) {
	ticket, ok := ExtractTicketNumber(text)
	if !ok {
		return 0, false
	}
	return parityOf(ticket), true
}

func parityOf(n int) ParityCategory {
	if n%2 == 0 {
		return Even
	}
	return Odd
}
