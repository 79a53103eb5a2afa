// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/realtime"
)

// Theme defines the monitor's color palette. All colors use lipgloss
// ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Connection state colors.
	StateConnected    lipgloss.Color
	StateConnecting   lipgloss.Color
	StateDisconnected lipgloss.Color

	// Ticket status colors.
	StatusValid    lipgloss.Color
	StatusUsed     lipgloss.Color
	StatusInactive lipgloss.Color // Cancelled and Expired.

	// Status bar notices.
	NoticeWarn  lipgloss.Color
	NoticeError lipgloss.Color

	// Background tint for check-ins that arrived since the last
	// keypress.
	FreshBackground lipgloss.Color
}

// StateColor returns the color for a connection state.
func (theme Theme) StateColor(state realtime.State) lipgloss.Color {
	switch state {
	case realtime.StateConnected:
		return theme.StateConnected
	case realtime.StateConnecting, realtime.StateReconnecting:
		return theme.StateConnecting
	default:
		return theme.StateDisconnected
	}
}

// StatusColor returns the color for a ticket status. Unknown statuses
// are faint.
func (theme Theme) StatusColor(status checkin.TicketStatus) lipgloss.Color {
	switch status {
	case checkin.StatusValid:
		return theme.StatusValid
	case checkin.StatusUsed:
		return theme.StatusUsed
	case checkin.StatusCancelled, checkin.StatusExpired:
		return theme.StatusInactive
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	StateConnected:    lipgloss.Color("114"), // green
	StateConnecting:   lipgloss.Color("220"), // amber
	StateDisconnected: lipgloss.Color("196"), // red

	StatusValid:    lipgloss.Color("75"),  // blue
	StatusUsed:     lipgloss.Color("114"), // green
	StatusInactive: lipgloss.Color("240"), // dim gray

	NoticeWarn:  lipgloss.Color("220"),
	NoticeError: lipgloss.Color("196"),

	FreshBackground: lipgloss.Color("22"), // dark green tint
}
