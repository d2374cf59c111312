// Package kfptest provides an in-memory pipelines service for tests.
package kfptest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"

	"github.com/nais/kfp-deploy/pkg/kfp"
)

// Upload records a pipeline or version upload received by the server.
type Upload struct {
	Name       string
	PipelineID string
	FileName   string
	Content    string
	Header     http.Header
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	maxPageSize int
	token       string
	pipelines   []*kfp.Pipeline
	versions    []*kfp.PipelineVersion
	uploads     []Upload
	lists       int
	nextID      int
}

// NewServer starts a server that already holds the given pipelines, in listing order.
func NewServer(pipelines ...*kfp.Pipeline) *Server {
	s := &Server{
		maxPageSize: 1000,
		pipelines:   pipelines,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() chi.Router {
	router := chi.NewRouter()
	router.Use(s.authenticate)
	router.Route("/apis/v1beta1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"multi_user": false})
		})
		r.Get("/pipelines", s.listPipelines)
		r.Post("/pipelines/upload", s.uploadPipeline)
		r.Post("/pipelines/upload_version", s.uploadPipelineVersion)
	})
	return router
}

// SetMaxPageSize limits the page size handed out, regardless of the requested size.
func (s *Server) SetMaxPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxPageSize = n
}

// SetToken makes the server require this bearer token. Empty disables the check.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Server) Pipelines() []*kfp.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*kfp.Pipeline(nil), s.pipelines...)
}

func (s *Server) Versions() []*kfp.PipelineVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*kfp.PipelineVersion(nil), s.versions...)
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// ListRequests returns how many listing pages have been served.
func (s *Server) ListRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "Unauthenticated: missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++

	pageSize := s.maxPageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid input error: page_size")
			return
		}
		if n > 0 && n < pageSize {
			pageSize = n
		}
	}

	offset := 0
	if v := r.URL.Query().Get("page_token"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > len(s.pipelines) {
			writeError(w, http.StatusBadRequest, "Invalid input error: page_token")
			return
		}
		offset = n
	}

	end := min(offset+pageSize, len(s.pipelines))
	list := kfp.PipelineList{
		Pipelines: s.pipelines[offset:end],
		TotalSize: len(s.pipelines),
	}
	if end < len(s.pipelines) {
		list.NextPageToken = strconv.Itoa(end)
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) uploadPipeline(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pipelines {
		if p.Name == upload.Name {
			writeError(w, http.StatusConflict, fmt.Sprintf("Already exist error: pipeline with name %q already exists", upload.Name))
			return
		}
	}

	pipeline := &kfp.Pipeline{
		ID:        s.newID(),
		Name:      upload.Name,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	s.pipelines = append(s.pipelines, pipeline)
	s.versions = append(s.versions, s.newVersion(pipeline.ID, upload.Name))
	s.uploads = append(s.uploads, upload)

	writeJSON(w, http.StatusOK, pipeline)
}

func (s *Server) uploadPipelineVersion(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, p := range s.pipelines {
		if p.ID == upload.PipelineID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Resource not found: pipeline %q", upload.PipelineID))
		return
	}

	for _, v := range s.versions {
		if v.PipelineID() == upload.PipelineID && v.Name == upload.Name {
			writeError(w, http.StatusConflict, fmt.Sprintf("Already exist error: version with name %q already exists", upload.Name))
			return
		}
	}

	version := s.newVersion(upload.PipelineID, upload.Name)
	s.versions = append(s.versions, version)
	s.uploads = append(s.uploads, upload)

	writeJSON(w, http.StatusOK, version)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (Upload, bool) {
	upload := Upload{
		Name:       r.URL.Query().Get("name"),
		PipelineID: r.URL.Query().Get("pipelineid"),
		Header:     r.Header.Clone(),
	}

	file, header, err := r.FormFile("uploadfile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input error: failed to read pipeline spec file")
		return upload, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil || len(content) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid input error: pipeline spec is empty")
		return upload, false
	}

	if upload.Name == "" {
		upload.Name = header.Filename
	}
	upload.FileName = header.Filename
	upload.Content = string(content)

	return upload, true
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("%08d-0000-0000-0000-000000000000", s.nextID)
}

func (s *Server) newVersion(pipelineID, name string) *kfp.PipelineVersion {
	return &kfp.PipelineVersion{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ResourceReferences: []kfp.ResourceReference{
			{
				Key:          kfp.ResourceKey{Type: kfp.ResourceTypePipeline, ID: pipelineID},
				Relationship: kfp.RelationshipOwner,
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error":   message,
		"message": message,
		"code":    status,
	})
}
