package outcome

import "regexp"

// A card is one suit glyph, optionally followed by the emoji variation
// selector U+FE0F. Matches never overlap, so "♠️" is one card.
var cardPattern = regexp.MustCompile(`[♠♥♦♣]\x{FE0F}?`)

// CountHand returns the number of cards in one rendered hand. Only 2 and 3
// are valid hand sizes; any other count returns 0.
func CountHand(group string) int {
	n := len(cardPattern.FindAllStringIndex(group, -1))
	if n == 2 || n == 3 {
		return n
	}
	return 0
}
