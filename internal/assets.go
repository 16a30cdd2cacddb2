package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AssetHandler stores uploaded attachments on disk and serves them back by
// ref. A ref is the URL path the server returns from an upload; clients
// treat it as opaque and attach it to drafts as-is.
type AssetHandler struct {
	server       *Server
	assetDir     string
	maxAssetSize int64
}

func NewAssetHandler(server *Server, assetDir string, maxAssetSize int64) *AssetHandler {
	return &AssetHandler{
		server:       server,
		assetDir:     assetDir,
		maxAssetSize: maxAssetSize,
	}
}

// HandleUpload accepts a multipart upload scoped to a room the uploader
// belongs to and responds with the asset ref.
func (h *AssetHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	authCtx, err := h.server.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAssetSize)
	if err := r.ParseMultipartForm(h.maxAssetSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("file too large"))
		return
	}

	roomID := r.FormValue("room_id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, errors.New("room_id required"))
		return
	}
	member, err := h.server.store.IsMember(r.Context(), roomID, authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("no file provided"))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == ".." {
		writeError(w, http.StatusBadRequest, errors.New("invalid filename"))
		return
	}
	if header.Size > h.maxAssetSize {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("file too large"))
		return
	}

	assetName := fmt.Sprintf("%s-%s", uuid.NewString(), sanitizePathComponent(filename))
	roomDir := filepath.Join(h.assetDir, sanitizePathComponent(roomID))
	storagePath := filepath.Join(roomDir, assetName)

	if err := os.MkdirAll(roomDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create asset directory: %w", err))
		return
	}
	destFile, err := os.Create(storagePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create file: %w", err))
		return
	}
	defer destFile.Close()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(destFile, hasher), file)
	if err != nil {
		os.Remove(storagePath)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("save file: %w", err))
		return
	}

	ref := "/api/assets/" + sanitizePathComponent(roomID) + "/" + assetName
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ref":    ref,
		"size":   written,
		"sha256": hex.EncodeToString(hasher.Sum(nil)),
	})
}

// HandleDownload serves a stored asset by its ref path.
func (h *AssetHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := h.server.authenticateRequest(r); err != nil {
		writeAuthError(w, err)
		return
	}

	relative := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	if relative == "" || strings.Contains(relative, "..") {
		http.Error(w, "invalid asset path", http.StatusBadRequest)
		return
	}
	filePath := filepath.Join(h.assetDir, filepath.FromSlash(relative))

	absBase, err := filepath.Abs(h.assetDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil || !strings.HasPrefix(absPath, absBase+string(os.PathSeparator)) {
		http.Error(w, "invalid asset path", http.StatusForbidden)
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "asset not found", http.StatusNotFound)
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	http.ServeContent(w, r, filepath.Base(filePath), stat.ModTime(), file)
}

// sanitizePathComponent removes path separators and null bytes from a
// single path segment.
func sanitizePathComponent(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "unnamed"
	}
	return s
}
