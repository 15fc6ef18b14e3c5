package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lox/cardcounter/internal/lifecycle"
	"github.com/lox/cardcounter/internal/report"
	"github.com/lox/cardcounter/internal/settings"
)

const startText = "👋 Bot de comptage prêt.\n" +
	"Commandes admin : /status, /set_stat <id>, /set_display <id>, /intervalle <min>, /bilan, /reset"

func isCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// parseCommand splits "/name@bot arg" into "name" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}

// handleCommand runs an admin command. It is called with s.mu held.
func (s *Service) handleCommand(ctx context.Context, ev Event) {
	name, args := parseCommand(ev.Text)
	logger := s.logger.With("command", name, "sender", ev.SenderID)

	var reply []string
	switch name {
	case "start":
		reply = []string{startText}
	case "status", "set_stat", "set_display", "intervalle", "bilan", "reset":
		if s.adminID == 0 || ev.SenderID != s.adminID {
			logger.Warn("Admin command from unauthorized user")
			return
		}
		reply = s.runAdmin(ctx, name, args, ev)
	default:
		return
	}

	logger.Info("Command handled")
	if err := s.sendAll(ctx, ev.ChatID, reply...); err != nil {
		logger.Error("Failed to reply to command", "error", err)
	}
}

func (s *Service) runAdmin(ctx context.Context, name string, args []string, ev Event) []string {
	switch name {
	case "status":
		return []string{s.status()}
	case "set_stat":
		if !ev.Private {
			return []string{"⚠️ Utilisez cette commande en message privé."}
		}
		id, ok := parseChannelArg(args)
		if !ok {
			return []string{"Usage : /set_stat <id>"}
		}
		if _, err := s.settings.Update(func(st *settings.Settings) { st.StatChannel = id }); err != nil {
			s.logger.Error("Failed to save stat channel", "error", err)
			return []string{"❌ Erreur de sauvegarde."}
		}
		// Message ids are only meaningful within one channel.
		s.tracker = lifecycle.NewTracker()
		return []string{fmt.Sprintf("✅ Canal statistiques : `%d`", id)}
	case "set_display":
		if !ev.Private {
			return []string{"⚠️ Utilisez cette commande en message privé."}
		}
		id, ok := parseChannelArg(args)
		if !ok {
			return []string{"Usage : /set_display <id>"}
		}
		if _, err := s.settings.Update(func(st *settings.Settings) { st.DisplayChannel = id }); err != nil {
			s.logger.Error("Failed to save display channel", "error", err)
			return []string{"❌ Erreur de sauvegarde."}
		}
		return []string{fmt.Sprintf("✅ Canal d'affichage : `%d`", id)}
	case "intervalle":
		if len(args) != 1 {
			return []string{"Usage : /intervalle <minutes>"}
		}
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return []string{"Usage : /intervalle <minutes>"}
		}
		st, err := s.settings.Update(func(st *settings.Settings) { st.IntervalMinutes = minutes })
		if err != nil {
			s.logger.Error("Failed to save interval", "error", err)
			return []string{"❌ Erreur de sauvegarde."}
		}
		if s.scheduler != nil {
			s.scheduler.SetInterval(time.Duration(st.IntervalMinutes) * time.Minute)
		}
		return []string{fmt.Sprintf("✅ Bilan automatique toutes les *%d* min", st.IntervalMinutes)}
	case "bilan":
		r := report.ReportAndReset(s.store)
		return r.Messages()
	case "reset":
		s.store.ResetAll()
		return []string{"✅ Compteurs remis à zéro."}
	}
	return nil
}

func (s *Service) status() string {
	st := s.settings.Get()
	snap := s.store.Snapshot()
	return fmt.Sprintf("📊 *Statut*\n"+
		"Canal statistiques : `%d`\n"+
		"Canal d'affichage : `%d`\n"+
		"Intervalle : *%d* min\n"+
		"Jeux comptés : *%d*\n"+
		"En attente : *%d*",
		st.StatChannel, st.DisplayChannel, st.IntervalMinutes, snap.PairTotal(), s.tracker.Pending())
}

func parseChannelArg(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return settings.NormalizeChannelID(id), true
}
