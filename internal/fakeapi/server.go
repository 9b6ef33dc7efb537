// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package fakeapi is an in-memory implementation of the transfer/board REST
// service, with signed-URL chunk uploads served by the same router.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Route names usable with Fail and Calls.
const (
	RouteAuthorize      = "authorize"
	RouteCreateTransfer = "create-transfer"
	RouteCreateBoard    = "create-board"
	RouteAddBoardFiles  = "add-board-files"
	RouteUploadURL      = "upload-url"
	RouteUploadChunk    = "upload-chunk"
	RouteCompleteFile   = "complete-file"
	RouteFinalize       = "finalize"
)

const (
	APIKey = "test-api-key"
	Token  = "test-token"
)

// Failure makes a route answer with Status. Times bounds how many requests
// fail (0 means all); File restricts it to one file, by display name.
type Failure struct {
	Status  int
	Message string
	Times   int
	File    string
	// Raw, when set, is written verbatim instead of the JSON error envelope.
	Raw string
}

type fileRecord struct {
	id        string
	name      string
	size      uint64
	multipart string
	parts     int
	received  map[int][]byte
	completed bool
}

type container struct {
	id    string
	board bool
	files []*fileRecord
}

// Server is the fake service. Configure its exported fields before use.
type Server struct {
	*httptest.Server

	ChunkSize uint64
	// EchoLocalIdentifier makes create-transfer echo local_identifier.
	EchoLocalIdentifier bool
	// AcknowledgeFiles, when > 0, caps how many files create-transfer returns.
	AcknowledgeFiles int
	// AuthorizeDelay slows down authorize, to widen races.
	AuthorizeDelay time.Duration

	mu         sync.Mutex
	seq        int
	failures   map[string][]*Failure
	calls      map[string]*atomic.Int32
	containers map[string]*container
	files      map[string]*fileRecord
}

func New() *Server {
	s := &Server{
		ChunkSize:  6 * 1024 * 1024,
		failures:   map[string][]*Failure{},
		calls:      map[string]*atomic.Int32{},
		containers: map[string]*container{},
		files:      map[string]*fileRecord{},
	}
	for _, r := range []string{RouteAuthorize, RouteCreateTransfer, RouteCreateBoard, RouteAddBoardFiles,
		RouteUploadURL, RouteUploadChunk, RouteCompleteFile, RouteFinalize} {
		s.calls[r] = &atomic.Int32{}
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/authorize", s.counted(RouteAuthorize, s.authorize))
	r.Put("/upload/{file}/{part}", s.counted(RouteUploadChunk, s.uploadChunk))

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/transfers", s.counted(RouteCreateTransfer, s.createTransfer))
		r.Get("/transfers/{container}/files/{file}/upload-url/{part}", s.counted(RouteUploadURL, s.uploadURL))
		r.Put("/transfers/{container}/files/{file}/upload-complete", s.counted(RouteCompleteFile, s.completeFile))
		r.Put("/transfers/{container}/finalize", s.counted(RouteFinalize, s.finalize))

		r.Post("/boards", s.counted(RouteCreateBoard, s.createBoard))
		r.Post("/boards/{container}/files", s.counted(RouteAddBoardFiles, s.addBoardFiles))
		r.Get("/boards/{container}/files/{file}/upload-url/{part}/{multipart}", s.counted(RouteUploadURL, s.uploadURL))
		r.Put("/boards/{container}/files/{file}/upload-complete", s.counted(RouteCompleteFile, s.completeFile))
	})
	return r
}

// Fail registers a failure for route.
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], &f)
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	return int(s.calls[route].Load())
}

// Received returns the bytes uploaded for the named file, in part order.
func (s *Server) Received(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.name != name {
			continue
		}
		parts := make([]int, 0, len(f.received))
		for p := range f.received {
			parts = append(parts, p)
		}
		sort.Ints(parts)
		var out []byte
		for _, p := range parts {
			out = append(out, f.received[p]...)
		}
		return out
	}
	return nil
}

// Completed reports whether upload-complete succeeded for the named file.
func (s *Server) Completed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.name == name && f.completed {
			return true
		}
	}
	return false
}

func (s *Server) counted(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.calls[route].Add(1)
		if f := s.takeFailure(route, chi.URLParam(r, "file")); f != nil {
			if f.Raw != "" {
				w.WriteHeader(f.Status)
				_, _ = io.WriteString(w, f.Raw)
				return
			}
			writeError(w, f.Status, f.Message)
			return
		}
		next(w, r)
	}
}

func (s *Server) takeFailure(route, fileID string) *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.failures[route] {
		if f.File != "" {
			rec, ok := s.files[fileID]
			if !ok || rec.name != f.File {
				continue
			}
		}
		if f.Times < 0 {
			continue
		}
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				f.Times = -1
			}
		}
		return f
	}
	return nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != APIKey {
			writeError(w, http.StatusForbidden, "invalid api key")
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	if s.AuthorizeDelay > 0 {
		time.Sleep(s.AuthorizeDelay)
	}
	if r.Header.Get("x-api-key") != APIKey {
		writeError(w, http.StatusForbidden, "invalid api key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": Token})
}

type fileSpec struct {
	Name            string `json:"name"`
	Size            uint64 `json:"size"`
	LocalIdentifier string `json:"local_identifier"`
}

func (s *Server) register(c *container, spec fileSpec) map[string]any {
	rec := &fileRecord{
		id:       s.nextID("f"),
		name:     spec.Name,
		size:     spec.Size,
		parts:    int((spec.Size + s.ChunkSize - 1) / s.ChunkSize),
		received: map[int][]byte{},
	}
	multipart := map[string]any{"part_numbers": rec.parts, "chunk_size": s.ChunkSize}
	if c.board {
		rec.multipart = s.nextID("mp")
		multipart["id"] = rec.multipart
	}
	c.files = append(c.files, rec)
	s.files[rec.id] = rec

	out := map[string]any{"id": rec.id, "name": rec.name, "size": rec.size, "type": "file", "multipart": multipart}
	if s.EchoLocalIdentifier && spec.LocalIdentifier != "" {
		out["local_identifier"] = spec.LocalIdentifier
	}
	return out
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string     `json:"message"`
		Files   []fileSpec `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" || len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "message and files are required")
		return
	}

	s.mu.Lock()
	c := &container{id: s.nextID("t")}
	s.containers[c.id] = c
	files := make([]map[string]any, 0, len(req.Files))
	for _, spec := range req.Files {
		files = append(files, s.register(c, spec))
	}
	s.mu.Unlock()

	if s.AcknowledgeFiles > 0 && s.AcknowledgeFiles < len(files) {
		files = files[:s.AcknowledgeFiles]
	}
	// acknowledged files come back in reverse order to exercise identifier matching
	if s.EchoLocalIdentifier {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id": c.id, "message": req.Message, "state": "uploading", "files": files,
	})
}

func (s *Server) createBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	c := &container{id: s.nextID("b"), board: true}
	s.containers[c.id] = c
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id": c.id, "name": req.Name, "description": req.Description,
		"state": "downloadable", "url": s.URL + "/share/" + c.id,
	})
}

func (s *Server) addBoardFiles(w http.ResponseWriter, r *http.Request) {
	var req []fileSpec
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req) == 0 {
		writeError(w, http.StatusBadRequest, "files are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok || !c.board {
		writeError(w, http.StatusNotFound, "board not found")
		return
	}
	out := make([]map[string]any, 0, len(req))
	for _, spec := range req {
		out = append(out, s.register(c, spec))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) lookup(r *http.Request) (*container, *fileRecord, bool) {
	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		return nil, nil, false
	}
	for _, f := range c.files {
		if f.id == chi.URLParam(r, "file") {
			return c, f, true
		}
	}
	return c, nil, false
}

func (s *Server) uploadURL(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, f, ok := s.lookup(r)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	part, err := strconv.Atoi(chi.URLParam(r, "part"))
	if err != nil || part < 1 || part > f.parts {
		writeError(w, http.StatusBadRequest, "invalid part number")
		return
	}
	if c.board && chi.URLParam(r, "multipart") != f.multipart {
		writeError(w, http.StatusBadRequest, "invalid multipart upload id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     fmt.Sprintf("%s/upload/%s/%d?X-Signature=%s", s.URL, f.id, part, f.id),
	})
}

func (s *Server) uploadChunk(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != "" || r.Header.Get("Authorization") != "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "<Error><Code>InvalidArgument</Code></Error>")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	part, _ := strconv.Atoi(chi.URLParam(r, "part"))

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[chi.URLParam(r, "file")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.received[part] = body
	w.Header().Set("ETag", fmt.Sprintf("%q", f.id+"-"+strconv.Itoa(part)))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) completeFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, f, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if !c.board {
		var req struct {
			PartNumbers int `json:"part_numbers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PartNumbers != f.parts {
			writeError(w, http.StatusBadRequest, "part_numbers mismatch")
			return
		}
	}
	if len(f.received) != f.parts {
		writeError(w, http.StatusExpectationFailed, fmt.Sprintf("expected %d parts, got %d", f.parts, len(f.received)))
		return
	}
	f.completed = true
	writeJSON(w, http.StatusOK, map[string]any{"id": f.id, "name": f.name, "size": f.size, "success": true})
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok || c.board {
		writeError(w, http.StatusNotFound, "transfer not found")
		return
	}
	for _, f := range c.files {
		if !f.completed {
			writeError(w, http.StatusConflict, "file "+f.name+" is not complete")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": c.id, "state": "processing", "url": "https://we.tl/" + c.id,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
