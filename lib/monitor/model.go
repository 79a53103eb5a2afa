// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/realtime"
)

// maxRecent is the number of check-ins kept in the recent list.
const maxRecent = 12

// eventMsg wraps a feed Event for delivery through the bubbletea
// message loop.
type eventMsg struct {
	event Event
}

// feedClosedMsg is sent once the feed channel is closed.
type feedClosedMsg struct{}

// Options configures [NewModel]. Zero values select the defaults.
type Options struct {
	Theme  *Theme
	Keys   *KeyMap
	Events <-chan Event
}

// recentCheckin is one row of the recent list.
type recentCheckin struct {
	notification checkin.Notification
	fresh        bool
}

// Model is the bubbletea model of the monitor.
type Model struct {
	source Source
	events <-chan Event
	theme  Theme
	keys   KeyMap

	width  int
	height int

	state   realtime.State
	rooms   []string
	counts  map[string]int
	tickets []checkin.Ticket
	recent  []recentCheckin

	feedClosed bool

	notice           string
	noticeLevel      slog.Level
	noticeGeneration int
}

// NewModel returns a monitor over source. Events normally comes from
// [Attach]; a nil channel renders the snapshot without live updates.
func NewModel(source Source, options Options) Model {
	model := Model{
		source: source,
		events: options.Events,
		theme:  DefaultTheme,
		keys:   DefaultKeyMap,
		state:  realtime.StateDisconnected,
	}
	if options.Theme != nil {
		model.theme = *options.Theme
	}
	if options.Keys != nil {
		model.keys = *options.Keys
	}
	model.reload()
	return model
}

// Init starts listening on the feed.
func (model Model) Init() tea.Cmd {
	if model.events == nil {
		return nil
	}
	return listenForEvent(model.events)
}

// listenForEvent returns a tea.Cmd that blocks until the next feed
// Event arrives.
func listenForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

// Update handles keys, window size, feed events, and log notices.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		for index := range model.recent {
			model.recent[index].fresh = false
		}
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Refresh):
			if model.source.RequestRefresh() {
				return model.setNotice("Refresh requested.", slog.LevelInfo)
			}
			return model.setNotice("Refresh throttled; try again shortly.", slog.LevelWarn)
		case key.Matches(message, model.keys.Clear):
			model.recent = nil
		}
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case eventMsg:
		model.apply(message.event)
		return model, listenForEvent(model.events)

	case feedClosedMsg:
		model.feedClosed = true
		return model, nil

	case noticeMsg:
		return model.setNotice(message.Summary, message.Level)

	case noticeFadeMsg:
		if message.generation == model.noticeGeneration {
			model.notice = ""
		}
		return model, nil
	}
	return model, nil
}

func (model *Model) apply(event Event) {
	switch event.Kind {
	case EventState:
		model.state = event.State
		model.rooms = model.source.Rooms()
	case EventCheckin:
		model.recent = append([]recentCheckin{{notification: event.Notification, fresh: true}}, model.recent...)
		if len(model.recent) > maxRecent {
			model.recent = model.recent[:maxRecent]
		}
		model.reload()
	case EventChange:
		model.reload()
	}
}

// reload re-reads the snapshot from the source.
func (model *Model) reload() {
	model.rooms = model.source.Rooms()
	model.counts = model.source.Counts()
	model.tickets = model.source.Tickets()
}

func (model Model) setNotice(summary string, level slog.Level) (Model, tea.Cmd) {
	model.notice = summary
	model.noticeLevel = level
	model.noticeGeneration++
	generation := model.noticeGeneration
	return model, tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{generation: generation}
	})
}

// View renders the header, rooms, recent check-ins, tickets, and the
// status bar.
func (model Model) View() string {
	theme := model.theme
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(theme.NormalText)

	var lines []string

	stateStyle := lipgloss.NewStyle().Foreground(theme.StateColor(model.state))
	title := header.Render("Check-in monitor") + "  " + stateStyle.Render("● "+model.state.String())
	if model.feedClosed {
		title += faint.Render("  (stopped)")
	}
	lines = append(lines, title, "")

	lines = append(lines, header.Render("Events"))
	if len(model.rooms) == 0 {
		lines = append(lines, faint.Render("  not watching any event"))
	}
	for _, eventID := range model.rooms {
		lines = append(lines, normal.Render(fmt.Sprintf("  %-24s %4d admitted", eventID, model.counts[eventID])))
	}
	lines = append(lines, "")

	lines = append(lines, header.Render("Recent check-ins"))
	if len(model.recent) == 0 {
		lines = append(lines, faint.Render("  none yet"))
	}
	for _, row := range model.recent {
		lines = append(lines, model.renderCheckin(row))
	}
	lines = append(lines, "")

	lines = append(lines, header.Render("Tickets"))
	if len(model.tickets) == 0 {
		lines = append(lines, faint.Render("  no tickets"))
	}
	for _, ticket := range model.sortedTickets() {
		status := lipgloss.NewStyle().Foreground(theme.StatusColor(ticket.Status)).Render(fmt.Sprintf("%-9s", ticket.Status))
		line := fmt.Sprintf("  %s %-20s %s", status, ticket.ID, faint.Render(ticket.EventID))
		if ticket.CheckinTime != nil {
			line += faint.Render("  " + ticket.CheckinTime.Local().Format(time.Kitchen))
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", model.renderStatusBar())

	if model.width > 0 {
		for index, line := range lines {
			lines[index] = ansi.Truncate(line, model.width, "…")
		}
	}
	if model.height > 0 && len(lines) > model.height {
		// Keep the status bar visible.
		lines = append(lines[:model.height-1], lines[len(lines)-1])
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderCheckin(row recentCheckin) string {
	notification := row.notification
	text := fmt.Sprintf("  %s  %-20s %-16s %s",
		notification.CheckinTime.Local().Format(time.TimeOnly),
		notification.TicketID,
		notification.EventID,
		notification.User.Display(),
	)
	if handler := notification.HandledBy.Display(); handler != "" {
		text += " by " + handler
	}
	style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	if row.fresh {
		style = style.Background(model.theme.FreshBackground)
	}
	return style.Render(text)
}

func (model Model) renderStatusBar() string {
	if model.notice != "" {
		color := model.theme.HelpText
		switch {
		case model.noticeLevel >= slog.LevelError:
			color = model.theme.NoticeError
		case model.noticeLevel >= slog.LevelWarn:
			color = model.theme.NoticeWarn
		}
		return lipgloss.NewStyle().Foreground(color).Render(model.notice)
	}

	var parts []string
	for _, binding := range model.keys.ShortHelp() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, " • "))
}

// sortedTickets orders tickets by event, then id.
func (model Model) sortedTickets() []checkin.Ticket {
	tickets := slices.Clone(model.tickets)
	slices.SortFunc(tickets, func(a, b checkin.Ticket) int {
		if c := strings.Compare(a.EventID, b.EventID); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tickets
}
