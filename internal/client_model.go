package internal

import (
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"liveroom/internal/backend"
	"liveroom/internal/engine"
)

type appMode int

const (
	modeAuthMenu appMode = iota
	modeAuthUsername
	modeAuthPassword
	modeRooms
	modeRoomTitle
	modeRoomCode
	modeChat
)

type authIntent int

const (
	authIntentLogin authIntent = iota
	authIntentSignup
)

// TUIModel drives the whole client: auth, room selection, and the live
// chat screen backed by a RoomSyncSession.
type TUIModel struct {
	serverURL   string
	sessionPath string
	notify      bool

	api *backend.Client

	userID   string
	username string

	textInput     textinput.Model
	viewport      viewport.Model
	viewportReady bool
	width         int
	height        int

	mode            appMode
	authIntent      authIntent
	pendingUsername string
	loading         bool
	notices         []string
	connectionError error

	rooms        []backend.Room
	selectedRoom int

	session   *engine.RoomSyncSession
	roomTitle string
	// banner is the "new messages below" affordance shown while the
	// reader holds their scroll position.
	banner bool
}

func NewTUIModel(serverURL, sessionPath string, notify bool) *TUIModel {
	input := textinput.New()
	input.CharLimit = 0
	input.Prompt = ""

	model := &TUIModel{
		serverURL:   serverURL,
		sessionPath: sessionPath,
		notify:      notify,
		textInput:   input,
		mode:        modeAuthMenu,
	}

	token := ""
	if cached, err := backend.LoadSession(sessionPath); err == nil {
		token = cached.Token
		model.userID = cached.UserID
		model.username = cached.Username
	}
	model.api = backend.NewClient(serverURL, token)
	return model
}

func (model *TUIModel) Init() tea.Cmd {
	// A cached token skips the auth menu; if the server rejects it we fall
	// back to the menu from the whoami result.
	if model.userID != "" {
		model.loading = true
		return model.whoamiCmd()
	}
	return nil
}

func (model *TUIModel) notice(text string) {
	model.notices = append(model.notices, text)
	if len(model.notices) > 5 {
		model.notices = model.notices[len(model.notices)-5:]
	}
}

func (model *TUIModel) clearNotices() {
	model.notices = nil
}

func defaultUsername() string {
	if user := os.Getenv("LIVEROOM_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}
