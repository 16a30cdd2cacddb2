package internal

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"liveroom/internal/backend"
	"liveroom/internal/engine"
)

const requestTimeout = 5 * time.Second

type (
	whoamiMsg struct {
		userID string
		err    error
	}
	authDoneMsg struct {
		result *backend.LoginResult
		err    error
	}
	signupDoneMsg struct {
		username string
		err      error
	}
	roomsLoadedMsg struct {
		rooms []backend.Room
		err   error
	}
	roomCreatedMsg struct {
		room *backend.Room
		err  error
	}
	roomJoinedMsg struct {
		roomID string
		err    error
	}
	sessionOpenedMsg struct {
		session *engine.RoomSyncSession
		title   string
		err     error
	}
	sessionEventMsg struct {
		event engine.Event
		ok    bool
	}
	sendDoneMsg struct {
		err error
	}
	uploadDoneMsg struct {
		ref     string
		caption string
		err     error
	}
)

func (model *TUIModel) whoamiCmd() tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := api.CurrentUserID(ctx)
		return whoamiMsg{userID: id, err: err}
	}
}

func (model *TUIModel) loginCmd(username, password string) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		result, err := api.Login(ctx, username, password)
		return authDoneMsg{result: result, err: err}
	}
}

func (model *TUIModel) signupCmd(username, password string) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := api.Signup(ctx, username, password); err != nil {
			return signupDoneMsg{err: err}
		}
		return signupDoneMsg{username: username}
	}
}

func (model *TUIModel) loadRoomsCmd() tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rooms, err := api.ListRooms(ctx)
		return roomsLoadedMsg{rooms: rooms, err: err}
	}
}

func (model *TUIModel) createRoomCmd(title string) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		room, err := api.CreateRoom(ctx, title)
		return roomCreatedMsg{room: room, err: err}
	}
}

func (model *TUIModel) joinRoomCmd(roomID string) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := api.JoinRoom(ctx, roomID)
		return roomJoinedMsg{roomID: roomID, err: err}
	}
}

// openSessionCmd wires the backend boundaries into a RoomSyncSession. The
// session owns its subscription; the UI only pumps its event channel.
func (model *TUIModel) openSessionCmd(room backend.Room) tea.Cmd {
	api := model.api
	serverURL := model.serverURL
	notify := model.notify
	return func() tea.Msg {
		stream := backend.NewStream(serverURL, api.Token(), log.Printf)
		collaborators := engine.Collaborators{
			Auth:        api,
			History:     api,
			Live:        stream,
			Profiles:    api,
			Persistence: api,
			Notifier:    backend.NewDesktopNotifier(notify),
			Logf:        log.Printf,
		}
		session, err := engine.OpenSession(context.Background(), room.ID, collaborators)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}
		title := room.Title
		if title == "" {
			title = room.ID
		}
		return sessionOpenedMsg{session: session, title: title}
	}
}

// waitForEvent blocks on the session's event channel and re-arms itself
// after every delivery until the channel closes.
func waitForEvent(session *engine.RoomSyncSession) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-session.Events()
		return sessionEventMsg{event: event, ok: ok}
	}
}

func (model *TUIModel) sendCmd(draft engine.Draft) tea.Cmd {
	session := model.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return sendDoneMsg{err: session.Send(ctx, draft)}
	}
}

// uploadCmd pushes the attachment first; the draft with the returned ref
// is sent from Update once the upload succeeds.
func (model *TUIModel) uploadCmd(roomID, path, caption string) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ref, err := api.UploadAsset(ctx, roomID, path)
		return uploadDoneMsg{ref: ref, caption: caption, err: err}
	}
}

func (model *TUIModel) saveSession(result *backend.LoginResult) {
	file := backend.SessionFile{
		UserID:   result.UserID,
		Username: result.Username,
		Token:    result.Token,
	}
	if err := backend.SaveSession(model.sessionPath, file); err != nil {
		log.Printf("save session: %v", err)
	}
}

// RunClient is the bubbletea entry point.
func RunClient(serverURL, sessionPath string, notify bool) error {
	program := tea.NewProgram(NewTUIModel(serverURL, sessionPath, notify), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
