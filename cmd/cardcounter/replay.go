package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/cardcounter/cmd/cardcounter/shared"
	"github.com/lox/cardcounter/internal/counter"
	"github.com/lox/cardcounter/internal/dedup"
	"github.com/lox/cardcounter/internal/httpapi"
	"github.com/lox/cardcounter/internal/lifecycle"
	"github.com/lox/cardcounter/internal/outcome"
	"github.com/lox/cardcounter/internal/report"
	"github.com/lox/cardcounter/internal/settings"
	"github.com/lox/cardcounter/internal/tally"
)

const replayChannel int64 = 1

// ReplayCmd counts a file of channel messages, one per line. A line whose
// game number matches an earlier pending line is replayed as an edit of it.
type ReplayCmd struct {
	File     string `arg:"" type:"existingfile" help:"File with one message per line"`
	JSON     bool   `help:"Print the counters as JSON instead of the report"`
	LogLevel string `short:"l" default:"warn" help:"Log level"`
}

type discardSender struct{}

func (discardSender) Send(context.Context, int64, string) error { return nil }

func (c *ReplayCmd) Run() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	logger := shared.SetupLogger(level)

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer f.Close()

	snap, err := replay(context.Background(), logger, f)
	if err != nil {
		return err
	}
	return printReplay(os.Stdout, snap, c.JSON)
}

// replay feeds r through a counter service whose stat channel is the replay
// channel, with no display channel.
func replay(ctx context.Context, logger *log.Logger, r io.Reader) (tally.Snapshot, error) {
	st, err := settings.Load("", settings.Settings{StatChannel: replayChannel})
	if err != nil {
		return tally.Snapshot{}, err
	}
	svc := counter.New(logger, tally.NewStore(), dedup.NewMemory(), discardSender{}, st,
		counter.WithInstantSummary(false))

	pendingByGame := make(map[int]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	id := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id++

		game, hasGame := outcome.ExtractGameNumber(line)
		if prev, ok := pendingByGame[game]; hasGame && ok {
			svc.HandleEdit(ctx, counter.Event{MessageID: prev, ChatID: replayChannel, Text: line})
			if !lifecycle.IsPending(line) {
				delete(pendingByGame, game)
			}
			continue
		}

		svc.HandleNew(ctx, counter.Event{MessageID: id, ChatID: replayChannel, Text: line})
		if hasGame && lifecycle.IsPending(line) {
			pendingByGame[game] = id
		}
	}
	if err := scanner.Err(); err != nil {
		return tally.Snapshot{}, fmt.Errorf("failed to read messages: %w", err)
	}

	if n := svc.Pending(); n > 0 {
		logger.Warn("Messages still pending at end of input", "count", n)
	}
	return svc.Snapshot(), nil
}

func printReplay(w io.Writer, snap tally.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.StatsOf(snap))
	}
	_, err := fmt.Fprintln(w, report.Render(snap).String())
	return err
}
