package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"blocknet/pkg/chunker"
	"blocknet/pkg/quota"
	"blocknet/pkg/registry"
	"blocknet/pkg/types"
	"blocknet/pkg/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the storage network over HTTP. Authentication and
// sessions are the caller's concern: the user identity arrives as a
// header and is trusted as-is.
type Server struct {
	network *registry.Network
	logger  *zap.Logger
	router  *mux.Router
}

func NewServer(network *registry.Network, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		network: network,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/files", s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc("/api/files", s.handleListFiles).Methods(http.MethodGet)
	s.router.HandleFunc("/api/files/{fileID}", s.handleDownload).Methods(http.MethodGet)
	s.router.HandleFunc("/api/files/{fileID}", s.handleDelete).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/files/{fileID}/manifest", s.handleManifest).Methods(http.MethodGet)
	s.router.HandleFunc("/api/nodes", s.handleListNodes).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)

	s.router.HandleFunc("/api/admin/nodes", s.handleAddNode).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/nodes/{nodeID}/extend", s.handleExtendNode).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/nodes/{nodeID}/health", s.handleNodeHealth).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/quota", s.handleGrantQuota).Methods(http.MethodPost)
}

// ---------------- file operations ----------------

type uploadResponse struct {
	FileID          string `json:"file_id"`
	Filename        string `json:"filename"`
	Size            int64  `json:"size"`
	Blocks          int    `json:"blocks"`
	Replication     int    `json:"replication"`
	UnderReplicated bool   `json:"under_replicated"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == "" {
		s.writeError(w, http.StatusBadRequest, "missing X-User header")
		return
	}

	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = "uploaded.bin"
	}

	replication := 0
	if v := r.URL.Query().Get("replication"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &replication); err != nil || replication <= 0 {
			s.writeError(w, http.StatusBadRequest, "replication must be a positive integer")
			return
		}
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	m, err := s.network.WriteFile(user, filename, data, replication)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, uploadResponse{
		FileID:          string(m.FileID),
		Filename:        m.Filename,
		Size:            m.Size,
		Blocks:          len(m.Blocks),
		Replication:     m.Replication,
		UnderReplicated: m.UnderReplicated,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := types.FileID(mux.Vars(r)["fileID"])

	m, err := s.network.Manifest(fileID)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	data, err := s.network.ReadFile(fileID)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	fileID := types.FileID(mux.Vars(r)["fileID"])

	if err := s.network.DeleteFile(fileID); err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type fileEntry struct {
	FileID          string    `json:"file_id"`
	Filename        string    `json:"filename"`
	Size            int64     `json:"size"`
	Blocks          int       `json:"blocks"`
	UnderReplicated bool      `json:"under_replicated"`
	CreatedAt       time.Time `json:"created_at"`
}

type listFilesResponse struct {
	Files   []fileEntry `json:"files"`
	Used    int64       `json:"used"`
	Allowed int64       `json:"allowed"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == "" {
		s.writeError(w, http.StatusBadRequest, "missing X-User header")
		return
	}

	manifests, err := s.network.ListFiles(user)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := listFilesResponse{Files: make([]fileEntry, 0, len(manifests))}
	for _, m := range manifests {
		resp.Files = append(resp.Files, fileEntry{
			FileID:          string(m.FileID),
			Filename:        m.Filename,
			Size:            m.Size,
			Blocks:          len(m.Blocks),
			UnderReplicated: m.UnderReplicated,
			CreatedAt:       m.CreatedAt,
		})
	}
	resp.Used, resp.Allowed = s.network.Usage(user)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	fileID := types.FileID(mux.Vars(r)["fileID"])

	m, err := s.network.Manifest(fileID)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, m)
}

// ---------------- network inspection ----------------

type nodeEntry struct {
	ID       string `json:"id"`
	Total    int64  `json:"storage_total"`
	Used     int64  `json:"storage_used"`
	Healthy  bool   `json:"healthy"`
	Blocks   int    `json:"blocks"`
	Utilized string `json:"utilized"`
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	statuses := s.network.NodeStatuses()

	nodes := make([]nodeEntry, 0, len(statuses))
	for _, st := range statuses {
		nodes = append(nodes, nodeEntry{
			ID:       string(st.ID),
			Total:    st.TotalCapacity,
			Used:     st.UsedCapacity,
			Healthy:  st.Healthy,
			Blocks:   st.BlockCount,
			Utilized: utils.FormatDataSize(st.UsedCapacity),
		})
	}

	s.writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.network.Stats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// ---------------- admin operations ----------------

type addNodeRequest struct {
	Capacity string `json:"capacity"`
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	capacity, err := utils.ParseDataSize(req.Capacity)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.network.AddNode(capacity)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"node_id": string(id)})
}

type extendNodeRequest struct {
	Delta string `json:"delta"`
}

func (s *Server) handleExtendNode(w http.ResponseWriter, r *http.Request) {
	nodeID := types.NodeID(mux.Vars(r)["nodeID"])

	var req extendNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	delta, err := utils.ParseDataSize(req.Delta)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.network.ExtendNode(nodeID, delta); err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

type nodeHealthRequest struct {
	Healthy bool `json:"healthy"`
}

func (s *Server) handleNodeHealth(w http.ResponseWriter, r *http.Request) {
	nodeID := types.NodeID(mux.Vars(r)["nodeID"])

	var req nodeHealthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	if req.Healthy {
		err = s.network.MarkNodeHealthy(nodeID)
	} else {
		err = s.network.MarkNodeUnhealthy(nodeID)
	}
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"healthy": req.Healthy})
}

type grantQuotaRequest struct {
	User string `json:"user"`
	Add  string `json:"add"`
}

func (s *Server) handleGrantQuota(w http.ResponseWriter, r *http.Request) {
	var req grantQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.User == "" {
		s.writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	add, err := utils.ParseDataSize(req.Add)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.network.GrantQuota(types.UserID(req.User), add)

	used, allowed := s.network.Usage(types.UserID(req.User))
	s.writeJSON(w, http.StatusOK, map[string]int64{"used": used, "allowed": allowed})
}

// ---------------- helpers ----------------

func userFrom(r *http.Request) types.UserID {
	if u := r.Header.Get("X-User"); u != "" {
		return types.UserID(u)
	}
	return types.UserID(r.URL.Query().Get("user"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeStorageError maps engine errors onto HTTP statuses.
func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		s.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrFileNotFound), errors.Is(err, registry.ErrNodeNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrFileUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, registry.ErrStorageWrite):
		s.writeError(w, http.StatusInsufficientStorage, err.Error())
	case errors.Is(err, chunker.ErrCorruptManifest):
		s.logger.Error("corrupt manifest surfaced to API", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
