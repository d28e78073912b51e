package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"TuneLib/logger"
	"TuneLib/model"
	"TuneLib/storage"
)

const (
	maxCoverSize  = 10 << 20
	mediaPrefix   = "/media/"
	coverFormName = "cover"
)

var safeExt = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,8}$`)

// ListSongsHandler GET /api/songs
func (h *Handler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.catalog.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if songs == nil {
		songs = []*model.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

// GetSongHandler GET /api/songs/{id}，不存在时返回 null
func (h *Handler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	song, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// CreateSongHandler POST /api/songs
func (h *Handler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	var song model.Song
	if err := json.NewDecoder(r.Body).Decode(&song); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	created, err := h.catalog.Create(r.Context(), &song)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Info("[Catalog] 新增歌曲", logger.SongID(created.ID), logger.String("title", created.Title))
	writeJSON(w, http.StatusOK, created)
}

// DeleteSongHandler DELETE /api/songs/{id}
func (h *Handler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UploadCoverHandler POST /api/songs/{id}/cover，表单字段 cover
func (h *Handler) UploadCoverHandler(w http.ResponseWriter, r *http.Request) {
	if h.covers == nil {
		writeBadRequest(w, "cover storage is not enabled")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	song, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if song == nil {
		writeBadRequest(w, "song not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverSize)
	if err := r.ParseMultipartForm(maxCoverSize); err != nil {
		writeBadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile(coverFormName)
	if err != nil {
		writeBadRequest(w, "cover file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeBadRequest(w, "cover must be an image")
		return
	}

	ext := filepath.Ext(header.Filename)
	if !safeExt.MatchString(ext) {
		ext = ""
	}

	objectName, err := h.covers.PutCover(r.Context(), id, file, header.Size, contentType, ext)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.catalog.SetCover(r.Context(), id, mediaPrefix+objectName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if updated == nil {
		// 上传期间歌曲被删除
		writeBadRequest(w, "song not found")
		return
	}

	logger.Info("[Catalog] 更新封面", logger.SongID(id), logger.String("object", objectName))
	writeJSON(w, http.StatusOK, updated)
}

// MediaHandler GET /media/{object}，从对象存储读取封面
func (h *Handler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	if h.covers == nil {
		http.NotFound(w, r)
		return
	}

	objectName := strings.TrimPrefix(r.URL.Path, mediaPrefix)
	if objectName == "" || !strings.HasPrefix(objectName, storage.CoverPrefix) || strings.Contains(objectName, "..") {
		http.NotFound(w, r)
		return
	}

	object, info, err := h.covers.GetObject(r.Context(), objectName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.Error("[Media] 读取对象失败", logger.String("object", objectName), logger.ErrorField(err))
		http.Error(w, "failed to read object", http.StatusBadGateway)
		return
	}
	defer object.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000") // 缓存一年

	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("[Media] 发送对象失败", logger.String("object", objectName), logger.ErrorField(err))
	}
}
