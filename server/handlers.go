package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"TuneLib/core/auth"
	"TuneLib/core/catalog"
	"TuneLib/core/library"
	"TuneLib/core/notify"
	"TuneLib/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// CoverStorage 封面对象存储，MinIO 未启用时为 nil
type CoverStorage interface {
	PutCover(ctx context.Context, songID int64, r io.Reader, size int64, contentType, ext string) (string, error)
	GetObject(ctx context.Context, objectName string) (io.ReadCloser, storage.ObjectInfo, error)
}

// Deps Handler 的依赖，Hub / Covers / HealthCheck 可为 nil
type Deps struct {
	Catalog     *catalog.Service
	Liked       *library.LikeService
	Playlist    *library.PlaylistService
	Resolver    auth.Resolver
	Hub         *notify.Hub
	Covers      CoverStorage
	HealthCheck func() error
}

// Handler 处理所有API请求
type Handler struct {
	catalog     *catalog.Service
	liked       *library.LikeService
	playlist    *library.PlaylistService
	resolver    auth.Resolver
	hub         *notify.Hub
	covers      CoverStorage
	healthCheck func() error
	upgrader    websocket.Upgrader
}

// NewHandler 创建新的API处理器
func NewHandler(d Deps) *Handler {
	return &Handler{
		catalog:     d.Catalog,
		liked:       d.Liked,
		playlist:    d.Playlist,
		resolver:    d.Resolver,
		hub:         d.Hub,
		covers:      d.Covers,
		healthCheck: d.HealthCheck,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// pathID 解析路由中的数字ID
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, &library.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

// HealthHandler 检查数据库连通性
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
