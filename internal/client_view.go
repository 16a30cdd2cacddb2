package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"liveroom/internal/backend"
	"liveroom/internal/engine"
)

var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	menuBoxStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	menuItemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).PaddingLeft(1)
	menuHotkeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	menuHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	noticeBoxStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("95")).Padding(1, 2).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	activeUserStyle    = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	bannerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("213")).Bold(true).Padding(0, 1)
	listSelectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	listItemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	attachmentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Italic(true)
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (model *TUIModel) View() string {
	switch model.mode {
	case modeAuthMenu:
		return model.renderAuthMenuView()
	case modeAuthUsername, modeAuthPassword:
		return model.renderAuthPromptView()
	case modeRooms:
		return model.renderRoomsView()
	case modeRoomTitle:
		return model.renderPrompt("Create a room", "Enter a room title and press Enter.")
	case modeRoomCode:
		return model.renderPrompt("Join a room", "Enter a room id and press Enter.")
	default:
		return model.renderChatView()
	}
}

func (model *TUIModel) renderAuthMenuView() string {
	title := appTitleStyle.Render("Liveroom")
	subtitle := subtitleStyle.Render("Live chat rooms from your terminal")

	options := []string{
		renderMenuOption("1", "Log in"),
		renderMenuOption("2", "Sign up"),
		renderMenuOption("q", "Quit"),
	}

	viewSections := []string{
		lipgloss.JoinVertical(lipgloss.Left, title, subtitle),
		menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, options...)),
	}

	if model.loading {
		viewSections = append(viewSections, connectingStyle.Render("Working…"))
	}
	if notices := model.renderSystemNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, menuHintStyle.Render("1) Log in  •  2) Sign up  •  q) Quit"))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderAuthPromptView() string {
	title := "Log in"
	if model.authIntent == authIntentSignup {
		title = "Create an account"
	}
	hint := "Enter your username"
	if model.mode == modeAuthPassword {
		hint = "Enter your password"
	}
	return model.renderPrompt(title, hint)
}

func (model *TUIModel) renderPrompt(title, hint string) string {
	header := appTitleStyle.Render(title)
	hintText := menuHintStyle.Render(hint)

	viewSections := []string{header, hintText}

	if model.loading {
		viewSections = append(viewSections, connectingStyle.Render("Working…"))
	}
	if notices := model.renderSystemNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, inputBoxStyle.Render(model.textInput.View()))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderRoomsView() string {
	title := appTitleStyle.Render(fmt.Sprintf("Welcome, %s", model.username))
	subtitle := subtitleStyle.Render(fmt.Sprintf("Rooms: %d", len(model.rooms)))

	viewSections := []string{title, subtitle}

	if model.loading {
		viewSections = append(viewSections, connectingStyle.Render("Loading rooms…"))
	}
	if notices := model.renderSystemNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}

	var roomLines []string
	if len(model.rooms) == 0 {
		roomLines = append(roomLines, menuHintStyle.Render("No rooms yet. Press N to create one."))
	} else {
		labels := backend.RoomTitles(model.rooms)
		for idx, room := range model.rooms {
			line := fmt.Sprintf("%s  (%d members)", labels[idx], room.Members)
			if idx == model.selectedRoom {
				roomLines = append(roomLines, listSelectedStyle.Render("➤ "+line))
			} else {
				roomLines = append(roomLines, listItemStyle.Render("  "+line))
			}
		}
	}
	viewSections = append(viewSections, menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, roomLines...)))

	hints := menuHintStyle.Render("↑/↓ select • Enter open • N new room • C join by id • R refresh • X logout • Q quit")
	viewSections = append(viewSections, hints)

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model *TUIModel) renderChatView() string {
	headerSegments := []string{"Liveroom " + Version}
	if model.roomTitle != "" {
		headerSegments = append(headerSegments, fmt.Sprintf("Room %s", model.roomTitle))
	}
	headerSegments = append(headerSegments, fmt.Sprintf("User %s", model.username))
	header := chatHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	switch {
	case model.connectionError != nil:
		statusLine = errorStyle.Render("Live updates lost: " + model.connectionError.Error())
	case model.session != nil:
		statusLine = connectedStyle.Render("Live")
	default:
		statusLine = connectingStyle.Render("Opening…")
	}

	sections := []string{header, statusLine}
	if model.viewportReady {
		sections = append(sections, model.viewport.View())
	}
	if model.banner {
		sections = append(sections, bannerStyle.Render("▼ New messages — press End to jump to newest"))
	}
	if notices := model.renderSystemNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, inputBoxStyle.Render(model.textInput.View()))
	sections = append(sections, menuHintStyle.Render("Esc or /leave back to rooms • /attach <path> [caption] • End jump to newest"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// refreshTimeline re-renders the session timeline into the viewport. It is
// called on every insert and on resize; the viewport keeps its own offset.
func (model *TUIModel) refreshTimeline() {
	if model.session == nil || !model.viewportReady {
		return
	}
	timeline := model.session.Timeline()
	lines := make([]string, 0, len(timeline)*2)
	for _, entry := range timeline {
		lines = append(lines, model.renderTimelineEntry(entry)...)
	}
	if len(lines) == 0 {
		lines = append(lines, systemMessageStyle.Render("No messages yet. Say hi and start the conversation."))
	}
	model.viewport.SetContent(strings.Join(lines, "\n"))
}

// renderTimelineEntry renders one message. Consecutive messages from the
// same sender share a single name label.
func (model *TUIModel) renderTimelineEntry(entry engine.LabeledMessage) []string {
	var lines []string
	if entry.ShowLabel {
		var nameStyle lipgloss.Style
		if entry.SenderID == model.userID {
			nameStyle = activeUserStyle
		} else {
			nameStyle = usernameStyle.Copy().Foreground(colorForUser(entry.SenderName))
		}
		timestamp := timestampStyle.Render(time.UnixMilli(entry.SentAt).Format("15:04:05"))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Left, nameStyle.Render(entry.SenderName), "  ", timestamp))
	}
	if entry.AssetRef != "" {
		lines = append(lines, attachmentStyle.Render("  🖼  "+entry.AssetRef))
	}
	if entry.Content != "" {
		body := messageBodyStyle.Render(strings.ReplaceAll(entry.Content, "\n", "\n  "))
		lines = append(lines, "  "+body)
	}
	return lines
}

func renderMenuOption(hotkey string, label string) string {
	key := menuHotkeyStyle.Render(hotkey)
	return lipgloss.JoinHorizontal(lipgloss.Left, key, menuItemStyle.Render(label))
}

func (model *TUIModel) renderSystemNotices() string {
	if len(model.notices) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(model.notices))
	for _, text := range model.notices {
		rendered = append(rendered, systemMessageStyle.Render(text))
	}
	return noticeBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rendered...))
}

func colorForUser(name string) lipgloss.Color {
	if len(userColorPalette) == 0 {
		return lipgloss.Color("249")
	}
	if name == "" {
		return userColorPalette[0]
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}
