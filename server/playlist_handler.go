package server

import (
	"net/http"

	"TuneLib/logger"
)

// AddedResponse POST /api/playlist-songs/add 的响应
type AddedResponse struct {
	Added bool `json:"added"`
}

// RemovedResponse DELETE /api/playlist-songs/remove/{songId} 的响应
type RemovedResponse struct {
	Removed bool `json:"removed"`
}

// InPlaylistResponse GET /api/playlist-songs/check/{songId} 的响应
type InPlaylistResponse struct {
	InPlaylist bool `json:"inPlaylist"`
}

// ListPlaylistHandler 返回用户的歌单
func (h *Handler) ListPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	records, err := h.playlist.List(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(records))
}

// AddToPlaylistHandler 添加歌曲到歌单，已存在时 added=false
func (h *Handler) AddToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	meta, err := decodeMembershipRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	added, err := h.playlist.Add(r.Context(), email, meta)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Debug("[Library] 添加到歌单", logger.Email(email), logger.SongID(meta.SongID), logger.Bool("added", added))
	writeJSON(w, http.StatusOK, AddedResponse{Added: added})
}

// RemoveFromPlaylistHandler 从歌单中删除歌曲，不存在时 removed=false
func (h *Handler) RemoveFromPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	songID, err := pathID(r, "songId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	removed, err := h.playlist.Remove(r.Context(), email, songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Debug("[Library] 从歌单删除", logger.Email(email), logger.SongID(songID), logger.Bool("removed", removed))
	writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// CheckPlaylistHandler 歌曲是否在歌单中
func (h *Handler) CheckPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	songID, err := pathID(r, "songId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	in, err := h.playlist.Contains(r.Context(), email, songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InPlaylistResponse{InPlaylist: in})
}
