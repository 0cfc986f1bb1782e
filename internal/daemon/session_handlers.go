package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lotsort/internal/enrichment"
	"lotsort/internal/groups"
	"lotsort/internal/logging"
	"lotsort/internal/photo"
	"lotsort/internal/session"
)

const multipartMemory = 32 << 20

type uploadResponse struct {
	Session session.Snapshot `json:"session"`
	Added   int              `json:"added"`
	Skipped []string         `json:"skipped,omitempty"`
}

type moveRequest struct {
	SourceGroup int  `json:"source_group"`
	SourceItem  int  `json:"source_item"`
	DestGroup   *int `json:"dest_group"`
	DestItem    *int `json:"dest_item"`
	NewGroup    bool `json:"new_group"`
}

type failureView struct {
	GroupIndex int             `json:"group_index"`
	Kind       enrichment.Kind `json:"kind"`
	Error      string          `json:"error"`
}

type confirmFailureResponse struct {
	Error    string              `json:"error"`
	Failures []failureView       `json:"failures"`
	Listings []enrichment.Result `json:"listings,omitempty"`
	Session  session.Snapshot    `json:"session"`
}

func (s *apiServer) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.daemon.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *apiServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.daemon.registry.Create()
	s.writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.lookup(w, r); ok {
		s.writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func (s *apiServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.registry.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sources, skipped, err := readUploads(r.MultipartForm, s.cfg.Ingest.Extensions)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(skipped) > 0 {
		logging.WarnWithContext(s.logger, "unsupported uploads skipped", "upload_skipped",
			logging.String(logging.FieldSessionID, sess.ID()),
			logging.Int("skipped", len(skipped)),
			logging.String(logging.FieldErrorHint, "add the extension to ingest.extensions"),
			logging.String(logging.FieldImpact, "skipped files are not clustered"),
		)
	}
	snap, err := sess.Ingest(r.Context(), sources)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, uploadResponse{Session: snap, Added: len(sources), Skipped: skipped})
}

// readUploads reads the "photos" files of form in order. The optional
// "last_modified" values pair with the files by position.
func readUploads(form *multipart.Form, exts []string) ([]photo.Source, []string, error) {
	files := form.File["photos"]
	mods := form.Value["last_modified"]
	sources := make([]photo.Source, 0, len(files))
	var skipped []string
	for i, fh := range files {
		name := filepath.Base(fh.Filename)
		if !photo.AllowedExtension(name, exts) {
			skipped = append(skipped, name)
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", name, err)
		}
		src := photo.Source{
			Name:        name,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
		if i < len(mods) {
			if modTime, ok := parseLastModified(mods[i]); ok {
				src.ModTime = modTime
			}
		}
		sources = append(sources, src)
	}
	return sources, skipped, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseLastModified accepts RFC 3339 timestamps or Unix epoch milliseconds.
func parseLastModified(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}
	if at, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return at, true
	}
	return time.Time{}, false
}

func (s *apiServer) handleMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid move request: "+err.Error())
		return
	}
	var (
		snap session.Snapshot
		err  error
	)
	switch {
	case req.NewGroup:
		snap, err = sess.MoveItemToNewGroup(req.SourceGroup, req.SourceItem)
	case req.DestGroup != nil && req.DestItem != nil:
		snap, err = sess.MoveItem(req.SourceGroup, *req.DestGroup, req.SourceItem, *req.DestItem)
	default:
		s.writeError(w, http.StatusBadRequest, "dest_group and dest_item are required unless new_group is set")
		return
	}
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap, err := sess.AddEmptyGroup()
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap, err := sess.Edit()
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	result, err := sess.Confirm(r.Context())
	if err == nil {
		s.writeJSON(w, http.StatusOK, result)
		return
	}
	var batchErr *enrichment.BatchError
	if !errors.As(err, &batchErr) {
		s.writeSessionError(w, r, err)
		return
	}
	failures := make([]failureView, 0, len(batchErr.Failures))
	for _, f := range batchErr.Failures {
		failures = append(failures, failureView{GroupIndex: f.GroupIndex, Kind: f.Kind, Error: f.Err.Error()})
	}
	s.writeJSON(w, http.StatusBadGateway, confirmFailureResponse{
		Error:    batchErr.Error(),
		Failures: failures,
		Listings: result.Listings,
		Session:  result.Snapshot,
	})
}

func (s *apiServer) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNotEditing),
		errors.Is(err, groups.ErrIndexOutOfRange):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoPhotos),
		errors.Is(err, session.ErrNothingToConfirm):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "api_request_failed",
			logging.Error(err),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
