// Package counter runs the bot: it feeds channel events through the
// lifecycle tracker, counts finalized announcements exactly once, and sends
// the reports.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/cardcounter/internal/dedup"
	"github.com/lox/cardcounter/internal/lifecycle"
	"github.com/lox/cardcounter/internal/outcome"
	"github.com/lox/cardcounter/internal/report"
	"github.com/lox/cardcounter/internal/settings"
	"github.com/lox/cardcounter/internal/tally"
)

// Event is one new or edited message from the transport.
type Event struct {
	MessageID int
	ChatID    int64
	SenderID  int64
	Text      string
	Private   bool // sent in a one-to-one chat with the bot
}

// Sender delivers text to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Publisher receives every message sent to the display channel.
type Publisher interface {
	Publish(text string)
}

// Rescheduler restarts the periodic report with a new interval.
type Rescheduler interface {
	SetInterval(d time.Duration)
}

// Option configures a Service.
type Option func(*Service)

// WithAdmin sets the only user allowed to run admin commands.
func WithAdmin(id int64) Option {
	return func(s *Service) { s.adminID = id }
}

// WithFeed adds a publisher that mirrors display channel messages.
func WithFeed(p Publisher) Option {
	return func(s *Service) { s.feeds = append(s.feeds, p) }
}

// WithInstantSummary toggles the summary sent after each counted message.
func WithInstantSummary(enabled bool) Option {
	return func(s *Service) { s.instant = enabled }
}

// Service is the single process-wide counter. Events are handled one at a
// time, each to completion, so counter updates apply in arrival order.
type Service struct {
	logger   *log.Logger
	store    *tally.Store
	dedup    dedup.Store
	sender   Sender
	settings *settings.File

	adminID   int64
	feeds     []Publisher
	instant   bool
	scheduler Rescheduler

	mu      sync.Mutex
	tracker *lifecycle.Tracker
}

// New creates a service. The store is owned by the service from here on.
func New(logger *log.Logger, store *tally.Store, dd dedup.Store, sender Sender, st *settings.File, opts ...Option) *Service {
	s := &Service{
		logger:   logger.WithPrefix("counter"),
		store:    store,
		dedup:    dd,
		sender:   sender,
		settings: st,
		instant:  true,
		tracker:  lifecycle.NewTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachScheduler wires the periodic report so /intervalle can restart it.
func (s *Service) AttachScheduler(r Rescheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = r
}

// Snapshot returns the counters of the current epoch.
func (s *Service) Snapshot() tally.Snapshot {
	return s.store.Snapshot()
}

// Pending returns the number of messages awaiting their final edit.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Pending()
}

// HandleNew processes a newly posted message.
func (s *Service) HandleNew(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ChatID != s.settings.Get().StatChannel {
		if isCommand(ev.Text) {
			s.handleCommand(ctx, ev)
		}
		return
	}

	res := s.tracker.OnCreate(ev.MessageID, ev.Text)
	s.apply(ctx, ev, res)
}

// HandleEdit processes an edit of a previously posted message.
func (s *Service) HandleEdit(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ChatID != s.settings.Get().StatChannel {
		return
	}

	res := s.tracker.OnEdit(ev.MessageID, ev.Text)
	s.apply(ctx, ev, res)
}

func (s *Service) apply(ctx context.Context, ev Event, res lifecycle.Result) {
	logger := s.logger.With("message_id", ev.MessageID)

	switch res.Action {
	case lifecycle.Hold:
		logger.Debug("Message pending", "text", preview(ev.Text))
	case lifecycle.Drop:
		logger.Info("Pending message edited without a final marker, dropped", "text", preview(ev.Text))
	case lifecycle.Ignore:
		logger.Debug("Message ignored", "text", preview(ev.Text))
	case lifecycle.Count:
		s.processFinal(ctx, logger, ev.ChatID, res.Text)
	}
}

// processFinal counts one finalized text. Failures of the dedup store or
// the sender are logged and never undo a committed update.
func (s *Service) processFinal(ctx context.Context, logger *log.Logger, chatID int64, text string) {
	seen, err := s.dedup.IsProcessed(ctx, text, chatID)
	if err != nil {
		logger.Error("Dedup lookup failed, message skipped", "error", err)
		return
	}
	if seen {
		logger.Debug("Message already processed")
		return
	}

	c := outcome.Classify(text)
	s.store.Update(c)
	logger.Info("Message counted",
		"game", c.Game,
		"pair", optional(c.HasPair, c.Pair),
		"winner", optional(c.HasWinner, c.Winner),
		"parity", optional(c.HasParity, c.Parity))

	if err := s.dedup.MarkProcessed(ctx, text, chatID); err != nil {
		logger.Error("Failed to mark message processed", "error", err)
	}

	if !s.instant {
		return
	}
	display := s.settings.Get().DisplayChannel
	if display == 0 {
		return
	}
	if err := s.sendDisplay(ctx, display, report.Instant(s.store.Snapshot())); err != nil {
		logger.Error("Failed to send instant summary", "error", err)
	}
}

// ReportAndSend closes the epoch and sends the full report to the display
// channel. Without a display channel nothing is reset.
func (s *Service) ReportAndSend(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	display := s.settings.Get().DisplayChannel
	if display == 0 {
		s.logger.Warn("Display channel not configured, report not sent")
		return nil
	}

	r := report.ReportAndReset(s.store)
	if err := s.sendDisplay(ctx, display, r.Messages()...); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	s.logger.Info("Report sent", "channel", display, "messages", len(r.Messages()))
	return nil
}

func (s *Service) sendDisplay(ctx context.Context, chatID int64, texts ...string) error {
	for _, p := range s.feeds {
		for _, text := range texts {
			p.Publish(text)
		}
	}
	return s.sendAll(ctx, chatID, texts...)
}

// sendAll sends every text, in order, even when some fail.
func (s *Service) sendAll(ctx context.Context, chatID int64, texts ...string) error {
	var errs []error
	for _, text := range texts {
		if err := s.sender.Send(ctx, chatID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func optional(ok bool, v fmt.Stringer) string {
	if !ok {
		return "-"
	}
	return v.String()
}

func preview(text string) string {
	const n = 50
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
