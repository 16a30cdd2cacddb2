package internal

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestModel(t *testing.T) *TUIModel {
	t.Helper()
	return NewTUIModel("http://127.0.0.1:0", filepath.Join(t.TempDir(), "session.json"), false)
}

func requireNotice(t *testing.T, model *TUIModel, fragment string) {
	t.Helper()
	for _, text := range model.notices {
		if strings.Contains(text, fragment) {
			return
		}
	}
	t.Fatalf("expected a notice containing %q, got %v", fragment, model.notices)
}

func TestUploadFinishingAfterLeavingRoomIsDropped(t *testing.T) {
	model := newTestModel(t)
	// The user left the chat view while the upload was still running.
	model.mode = modeRooms
	model.session = nil

	updated, cmd := model.Update(uploadDoneMsg{ref: "/api/assets/r1/pic.png", caption: "holiday"})

	if cmd != nil {
		if msg := cmd(); msg != nil {
			t.Fatalf("expected the upload result to be dropped, got a %T command result", msg)
		}
	}
	requireNotice(t, updated.(*TUIModel), "attachment not sent")
}

func TestUploadFailureSurfacesNotice(t *testing.T) {
	model := newTestModel(t)
	model.mode = modeChat

	updated, cmd := model.Update(uploadDoneMsg{err: errors.New("file too large")})

	if cmd != nil {
		t.Fatal("a failed upload must not trigger a send")
	}
	requireNotice(t, updated.(*TUIModel), "file too large")
}
