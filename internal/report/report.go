// Package report renders the statistics of an epoch into the messages sent
// to the display channel.
package report

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lox/cardcounter/internal/outcome"
	"github.com/lox/cardcounter/internal/tally"
)

const (
	rule        = "━━━━━━━━━━━━━━━━━━━━"
	dashes      = "--------------------------------------------------"
	gamesPerRow = 10
	barCells    = 10

	// NoData is the general tally shown before anything was counted.
	NoData = "Aucune donnée analysée pour le moment."
	// NoDetails replaces the detailed listings before anything was counted.
	NoDetails = "📭 Bilans détaillés : aucun jeu analysé sur cette période."
	// NoGames is the listing placeholder for an empty pairing category.
	NoGames = "Aucun jeu enregistré dans cette configuration. 🎲"
)

type pairStyle struct {
	emoji string // instant summary marker
	heart string // general tally heading
	cell  string // filled bar cell
	title string
	deco  string
}

var pairStyles = [outcome.NumPairs]pairStyle{
	outcome.Pair32: {emoji: "💪", heart: "🧡", cell: "🔶", title: "La Main Forte du Joueur", deco: "🎴🎯✨"},
	outcome.Pair33: {emoji: "🔥", heart: "❤️", cell: "🟥", title: "Le Jackpot des Trois Cartes", deco: "👑♠️♥️"},
	outcome.Pair22: {emoji: "🃏", heart: "🖤", cell: "⬛", title: "L'Équilibre du Tapis", deco: "♦️♣️🎲"},
	outcome.Pair23: {emoji: "🍀", heart: "💚", cell: "🟩", title: "Le Tirage Gagnant", deco: "💫💰🎉"},
}

var winnerLabels = [outcome.NumWinners]string{
	outcome.Player: "Joueur",
	outcome.Banker: "Banquier",
	outcome.Tie:    "Égalité",
}

var parityLabels = [outcome.NumParities]string{
	outcome.Odd:  "Impair",
	outcome.Even: "Pair",
}

// Report holds the three tiers rendered from one snapshot.
type Report struct {
	Instant string
	General string
	Details []string
}

// Messages returns the sections in the order they are sent.
func (r Report) Messages() []string {
	msgs := make([]string, 0, 2+len(r.Details))
	msgs = append(msgs, r.Instant, r.General)
	return append(msgs, r.Details...)
}

func (r Report) String() string {
	return strings.Join(r.Messages(), "\n\n")
}

// Percent returns count*100/total, or 0 when total is 0.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}

// Render builds every section from snap.
func Render(snap tally.Snapshot) Report {
	p := message.NewPrinter(language.French)
	r := Report{
		Instant: instant(p, snap),
		General: general(p, snap),
	}
	if snap.PairTotal() == 0 {
		r.Details = []string{NoDetails}
		return r
	}
	for _, pc := range outcome.PairOrder {
		r.Details = append(r.Details, detail(p, pc, snap.Pair(pc)))
	}
	return r
}

// Instant renders only the instant summary.
func Instant(snap tally.Snapshot) string {
	return instant(message.NewPrinter(language.French), snap)
}

// ReadAndResetter is the part of the store needed to close an epoch.
type ReadAndResetter interface {
	ReadAndReset() tally.Snapshot
}

// ReportAndReset closes the epoch of store and renders it.
func ReportAndReset(store ReadAndResetter) Report {
	return Render(store.ReadAndReset())
}

func instant(p *message.Printer, snap tally.Snapshot) string {
	total := snap.PairTotal()
	lines := []string{
		"✨ *Instantané* | Stats Paires ✨",
		rule,
		p.Sprintf("📈 Total jeux analysés : *%d*", total),
		"",
		"🏆 *Vainqueurs*",
	}

	winners := snap.WinnerTotal()
	for w := outcome.WinnerCategory(0); w < outcome.NumWinners; w++ {
		n := snap.Winner(w).Count
		lines = append(lines, p.Sprintf("• %s : *%d* (%.1f %%)", winnerLabels[w], n, Percent(n, winners)))
	}

	lines = append(lines, "", "🎟️ *Parité des tickets*")
	parities := snap.ParityTotal()
	for pc := outcome.ParityCategory(0); pc < outcome.NumParities; pc++ {
		n := snap.Parity(pc).Count
		lines = append(lines, p.Sprintf("• %s : *%d* (%.1f %%)", parityLabels[pc], n, Percent(n, parities)))
	}

	p3, p2 := snap.PlayerKCounts()
	b3, b2 := snap.BankerKCounts()
	lines = append(lines,
		"",
		"👤 *Analyse JOUEUR (X/Y)*",
		p.Sprintf("• *3K* (3/2 + 3/3) : *%d* (%.1f %%)", p3, Percent(p3, total)),
		p.Sprintf("• *2K* (2/2 + 2/3) : *%d* (%.1f %%)", p2, Percent(p2, total)),
		"",
		"🏦 *Analyse BANQUIER (X/Y)*",
		p.Sprintf("• *3K* (2/3 + 3/3) : *%d* (%.1f %%)", b3, Percent(b3, total)),
		p.Sprintf("• *2K* (2/2 + 3/2) : *%d* (%.1f %%)", b2, Percent(b2, total)),
		"",
		"📋 *Détails des Paires*",
		rule,
	)

	for _, pc := range outcome.PairOrder {
		n := snap.Pair(pc).Count
		lines = append(lines, p.Sprintf("• *%s* : *%d* (%.1f %%) %s", pc, n, Percent(n, total), pairStyles[pc].emoji))
	}
	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

func general(p *message.Printer, snap tally.Snapshot) string {
	total := snap.PairTotal()
	if total == 0 {
		return NoData
	}

	lines := []string{
		"╔════════════════════╗",
		"📊 Bilan Général des Paires",
		"╚════════════════════╝",
		"",
	}
	for _, pc := range outcome.PairOrder {
		n := snap.Pair(pc).Count
		pct := Percent(n, total)
		style := pairStyles[pc]
		lines = append(lines,
			p.Sprintf("%s *%s*", style.heart, pc),
			p.Sprintf("├─ Compteur : *%d* numéros", n),
			p.Sprintf("├─ Pourcentage : *%.1f %%*", pct),
			"└─ "+Bar(pct, style.cell),
			"",
		)
	}
	lines = append(lines,
		rule,
		p.Sprintf("📌 Total de numéros analysés : *%d*", total),
		rule,
	)
	return strings.Join(lines, "\n")
}

// Bar draws pct as ten cells with one filled cell per whole tenth, so 19.9%
// fills one cell.
func Bar(pct float64, cell string) string {
	filled := int(pct / 10)
	if filled < 0 {
		filled = 0
	}
	if filled > barCells {
		filled = barCells
	}
	return strings.Repeat(cell, filled) + strings.Repeat("⬜", barCells-filled)
}

func detail(p *message.Printer, pc outcome.PairCategory, c tally.Category) string {
	style := pairStyles[pc]
	lines := []string{
		p.Sprintf("┏━━━━━━ %s *%s* (%s) %s ━━━━━━┓", style.deco, style.title, pc, style.deco),
		p.Sprintf("🎯 *Configuration* : %s | Total des numéros : *%d* %s", pc, c.Count, style.emoji),
		"┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛",
		"",
		"🎰 *La liste des numéros (chronologique) :*",
		dashes,
	}
	lines = append(lines, GameRows(c.Games)...)
	lines = append(lines, dashes)
	return strings.Join(lines, "\n")
}

// GameRows lists games as #N tokens, gamesPerRow per line, in order. An empty
// list yields the NoGames placeholder.
func GameRows(games []int) []string {
	if len(games) == 0 {
		return []string{NoGames}
	}
	rows := make([]string, 0, (len(games)+gamesPerRow-1)/gamesPerRow)
	for start := 0; start < len(games); start += gamesPerRow {
		end := min(start+gamesPerRow, len(games))
		tokens := make([]string, 0, end-start)
		for _, g := range games[start:end] {
			tokens = append(tokens, "#N"+strconv.Itoa(g))
		}
		rows = append(rows, strings.Join(tokens, " "))
	}
	return rows
}
