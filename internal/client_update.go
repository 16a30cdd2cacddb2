package internal

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"liveroom/internal/backend"
	"liveroom/internal/engine"
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		if typedMessage.Type == tea.KeyCtrlC {
			model.closeSession()
			return model, tea.Quit
		}
		return model.updateKey(typedMessage)

	case tea.WindowSizeMsg:
		model.width = typedMessage.Width
		model.height = typedMessage.Height
		chromeHeight := 7
		if !model.viewportReady {
			model.viewport = viewport.New(typedMessage.Width, max(typedMessage.Height-chromeHeight, 3))
			model.viewportReady = true
		} else {
			model.viewport.Width = typedMessage.Width
			model.viewport.Height = max(typedMessage.Height-chromeHeight, 3)
		}
		model.refreshTimeline()
		return model, nil

	case whoamiMsg:
		model.loading = false
		if typedMessage.err != nil || typedMessage.userID == "" {
			if typedMessage.err != nil {
				model.notice("Could not restore session: " + typedMessage.err.Error())
			}
			model.mode = modeAuthMenu
			return model, nil
		}
		model.userID = typedMessage.userID
		model.mode = modeRooms
		model.loading = true
		return model, model.loadRoomsCmd()

	case authDoneMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.notice("Login failed: " + typedMessage.err.Error())
			model.mode = modeAuthMenu
			return model, nil
		}
		model.userID = typedMessage.result.UserID
		model.username = typedMessage.result.Username
		model.saveSession(typedMessage.result)
		model.clearNotices()
		model.mode = modeRooms
		model.loading = true
		return model, model.loadRoomsCmd()

	case signupDoneMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.notice("Signup failed: " + typedMessage.err.Error())
			model.mode = modeAuthMenu
			return model, nil
		}
		model.notice("Account created. Log in to continue.")
		model.authIntent = authIntentLogin
		model.pendingUsername = ""
		model.mode = modeAuthUsername
		model.promptInput("name> ", typedMessage.username)
		return model, nil

	case roomsLoadedMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.notice("Could not load rooms: " + typedMessage.err.Error())
			return model, nil
		}
		model.rooms = typedMessage.rooms
		if model.selectedRoom >= len(model.rooms) {
			model.selectedRoom = 0
		}
		return model, nil

	case roomCreatedMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.notice("Could not create room: " + typedMessage.err.Error())
			model.mode = modeRooms
			return model, nil
		}
		model.loading = true
		return model, model.openSessionCmd(*typedMessage.room)

	case roomJoinedMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.notice("Could not join room: " + typedMessage.err.Error())
			model.mode = modeRooms
			return model, nil
		}
		model.loading = true
		return model, model.openSessionCmd(backend.Room{ID: typedMessage.roomID})

	case sessionOpenedMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.notice("Could not open room: " + typedMessage.err.Error())
			model.mode = modeRooms
			return model, nil
		}
		model.session = typedMessage.session
		model.roomTitle = typedMessage.title
		model.connectionError = nil
		model.banner = false
		model.mode = modeChat
		model.promptInput("> ", "")
		model.textInput.Placeholder = "Type a message…"
		model.refreshTimeline()
		model.viewport.GotoBottom()
		return model, waitForEvent(model.session)

	case sessionEventMsg:
		if model.session == nil {
			return model, nil
		}
		if !typedMessage.ok {
			// The session was closed; nothing more will arrive.
			return model, nil
		}
		switch typedMessage.event.Kind {
		case engine.EventInsert:
			model.refreshTimeline()
			if typedMessage.event.ScrollToBottom {
				model.viewport.GotoBottom()
			} else {
				model.banner = true
			}
		case engine.EventSubscriptionDown:
			model.connectionError = typedMessage.event.Err
			model.notice("Live updates lost. Leave and re-enter the room to resync.")
		}
		return model, waitForEvent(model.session)

	case sendDoneMsg:
		if typedMessage.err != nil {
			if errors.Is(typedMessage.err, engine.ErrNotAuthenticated) {
				model.notice("You are signed out. Log in again to send messages.")
			} else {
				model.notice("Send failed: " + typedMessage.err.Error())
			}
		}
		return model, nil

	case uploadDoneMsg:
		if typedMessage.err != nil {
			model.notice("Upload failed: " + typedMessage.err.Error())
			return model, nil
		}
		if model.session == nil {
			// The room was left while the upload was in flight.
			model.notice("Room closed before the upload finished; attachment not sent.")
			return model, nil
		}
		return model, model.sendCmd(engine.Draft{Content: typedMessage.caption, AssetRef: typedMessage.ref})
	}
	return model, nil
}

func (model *TUIModel) updateKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch model.mode {
	case modeAuthMenu:
		switch key.String() {
		case "1", "l", "L":
			model.authIntent = authIntentLogin
			model.mode = modeAuthUsername
			model.promptInput("name> ", defaultUsername())
			return model, nil
		case "2", "s", "S":
			model.authIntent = authIntentSignup
			model.mode = modeAuthUsername
			model.promptInput("name> ", "")
			return model, nil
		case "q", "Q":
			return model, tea.Quit
		}
		return model, nil

	case modeAuthUsername:
		switch key.Type {
		case tea.KeyEnter:
			trimmed := strings.TrimSpace(model.textInput.Value())
			if trimmed == "" {
				model.notice("Username cannot be empty.")
				return model, nil
			}
			model.pendingUsername = trimmed
			model.mode = modeAuthPassword
			model.promptInput("pass> ", "")
			model.textInput.EchoMode = textinput.EchoPassword
			return model, nil
		case tea.KeyEsc:
			model.mode = modeAuthMenu
			model.resetInput()
			return model, nil
		}
		return model.updateInput(key)

	case modeAuthPassword:
		switch key.Type {
		case tea.KeyEnter:
			password := model.textInput.Value()
			model.textInput.EchoMode = textinput.EchoNormal
			model.resetInput()
			if password == "" {
				model.notice("Password cannot be empty.")
				model.mode = modeAuthMenu
				return model, nil
			}
			model.loading = true
			if model.authIntent == authIntentSignup {
				return model, model.signupCmd(model.pendingUsername, password)
			}
			return model, model.loginCmd(model.pendingUsername, password)
		case tea.KeyEsc:
			model.textInput.EchoMode = textinput.EchoNormal
			model.mode = modeAuthMenu
			model.resetInput()
			return model, nil
		}
		return model.updateInput(key)

	case modeRooms:
		switch key.String() {
		case "up", "k":
			if model.selectedRoom > 0 {
				model.selectedRoom--
			}
			return model, nil
		case "down", "j":
			if model.selectedRoom < len(model.rooms)-1 {
				model.selectedRoom++
			}
			return model, nil
		case "enter":
			if len(model.rooms) == 0 {
				return model, nil
			}
			model.loading = true
			return model, model.openSessionCmd(model.rooms[model.selectedRoom])
		case "n", "N":
			model.mode = modeRoomTitle
			model.promptInput("title> ", "")
			return model, nil
		case "c", "C":
			model.mode = modeRoomCode
			model.promptInput("room> ", "")
			return model, nil
		case "r", "R":
			model.loading = true
			return model, model.loadRoomsCmd()
		case "x", "X":
			model.logout()
			return model, nil
		case "q", "Q":
			return model, tea.Quit
		}
		return model, nil

	case modeRoomTitle:
		switch key.Type {
		case tea.KeyEnter:
			title := strings.TrimSpace(model.textInput.Value())
			model.resetInput()
			if title == "" {
				model.mode = modeRooms
				return model, nil
			}
			model.loading = true
			return model, model.createRoomCmd(title)
		case tea.KeyEsc:
			model.mode = modeRooms
			model.resetInput()
			return model, nil
		}
		return model.updateInput(key)

	case modeRoomCode:
		switch key.Type {
		case tea.KeyEnter:
			code := strings.TrimSpace(model.textInput.Value())
			model.resetInput()
			if code == "" {
				model.mode = modeRooms
				return model, nil
			}
			model.loading = true
			return model, model.joinRoomCmd(code)
		case tea.KeyEsc:
			model.mode = modeRooms
			model.resetInput()
			return model, nil
		}
		return model.updateInput(key)

	case modeChat:
		switch key.Type {
		case tea.KeyEnter:
			return model.submitChatInput()
		case tea.KeyEsc:
			model.leaveRoom()
			model.loading = true
			return model, model.loadRoomsCmd()
		case tea.KeyEnd:
			// Jump to newest: resume following and clear the banner.
			if model.session != nil {
				model.session.JumpToNewest()
			}
			model.viewport.GotoBottom()
			model.banner = false
			return model, nil
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome:
			var cmd tea.Cmd
			model.viewport, cmd = model.viewport.Update(key)
			model.observeScroll()
			return model, cmd
		}
		return model.updateInput(key)
	}
	return model, nil
}

func (model *TUIModel) submitChatInput() (tea.Model, tea.Cmd) {
	trimmed := strings.TrimSpace(model.textInput.Value())
	if trimmed == "" {
		return model, nil
	}
	if strings.HasPrefix(trimmed, "/") {
		model.textInput.SetValue("")
		fields := strings.Fields(trimmed)
		switch strings.ToLower(fields[0]) {
		case "/quit", "/exit":
			model.closeSession()
			return model, tea.Quit
		case "/leave":
			model.leaveRoom()
			model.loading = true
			return model, model.loadRoomsCmd()
		case "/attach":
			if len(fields) < 2 {
				model.notice("Usage: /attach <path> [caption]")
				return model, nil
			}
			caption := strings.Join(fields[2:], " ")
			return model, model.uploadCmd(model.session.RoomID(), fields[1], caption)
		default:
			model.notice("Unknown command: " + fields[0])
			return model, nil
		}
	}
	model.textInput.SetValue("")
	return model, model.sendCmd(engine.Draft{Content: trimmed})
}

// observeScroll feeds the viewport position back into the session's follow
// policy after the user scrolls.
func (model *TUIModel) observeScroll() {
	if model.session == nil || !model.viewportReady {
		return
	}
	model.session.ObserveScroll(engine.ScrollMetrics{
		ScrollTop:    model.viewport.YOffset,
		ScrollHeight: model.viewport.TotalLineCount(),
		ClientHeight: model.viewport.Height,
	})
	if model.session.FollowMode() == engine.FollowAuto {
		model.banner = false
	}
}

func (model *TUIModel) leaveRoom() {
	model.closeSession()
	model.mode = modeRooms
	model.banner = false
	model.connectionError = nil
	model.resetInput()
}

func (model *TUIModel) closeSession() {
	if model.session != nil {
		model.session.Close()
		model.session = nil
	}
}

func (model *TUIModel) logout() {
	api := model.api
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_ = api.Logout(ctx)
	}()
	_ = backend.DeleteSession(model.sessionPath)
	model.api.SetToken("")
	model.userID = ""
	model.username = ""
	model.rooms = nil
	model.mode = modeAuthMenu
}

func (model *TUIModel) promptInput(prompt, value string) {
	model.textInput.Prompt = prompt
	model.textInput.Placeholder = ""
	model.textInput.SetValue(value)
	model.textInput.CursorEnd()
	model.textInput.Focus()
}

func (model *TUIModel) resetInput() {
	model.textInput.SetValue("")
	model.textInput.Prompt = ""
	model.textInput.Placeholder = ""
	model.textInput.Blur()
}

func (model *TUIModel) updateInput(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return model, cmd
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
