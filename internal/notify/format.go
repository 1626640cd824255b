package notify

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"focusroom/internal/core"
)

// format renders the chat message for event, or "" when the event is not announced
func (n *Notifier) format(event core.Event) string {
	switch data := event.Data.(type) {
	case core.SessionStartData:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("🎯 *Focus session started* (%d min)", minutes(data.Duration)))
		if data.Goal != "" {
			sb.WriteString("\nGoal: " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, data.Goal))
		}
		return sb.String()

	case core.SessionEndData:
		if data.Snapshot == nil {
			return ""
		}
		return formatEnd(event.Type, data.Snapshot)

	case core.MilestoneData:
		if !n.cfg.Milestones {
			return ""
		}
		return fmt.Sprintf("⏳ %d%% of your focus session done", data.Percent)
	}
	return ""
}

func formatEnd(t core.EventType, s *core.SessionSnapshot) string {
	var sb strings.Builder
	if t == core.EventSessionComplete {
		sb.WriteString(fmt.Sprintf("🎉 *Deep work session completed!*\nGreat job! You completed a %d-minute session.", minutes(s.PlannedDuration)))
	} else {
		sb.WriteString(fmt.Sprintf("⏹ *Focus session stopped* after %d min", minutes(s.ActiveElapsed)))
	}
	if s.BlockedAttempts > 0 {
		sb.WriteString(fmt.Sprintf("\nBlocked attempts: %d", s.BlockedAttempts))
	}
	if s.OverrideCount > 0 {
		sb.WriteString(fmt.Sprintf("\nTemporary grants: %d", s.OverrideCount))
	}
	return sb.String()
}

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}
