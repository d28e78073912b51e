package server

import (
	"net/http"

	"TuneLib/logger"
)

// LikedResponse toggle / check 的响应
type LikedResponse struct {
	Liked bool `json:"liked"`
}

// ListLikedHandler GET /api/liked-songs
func (h *Handler) ListLikedHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	records, err := h.liked.List(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(records))
}

// ToggleLikedHandler POST /api/liked-songs/toggle
func (h *Handler) ToggleLikedHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	meta, err := decodeMembershipRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	liked, err := h.liked.Toggle(r.Context(), email, meta)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Debug("[Library] 切换喜欢状态", logger.Email(email), logger.SongID(meta.SongID), logger.Bool("liked", liked))
	writeJSON(w, http.StatusOK, LikedResponse{Liked: liked})
}

// CheckLikedHandler GET /api/liked-songs/check/{songId}
func (h *Handler) CheckLikedHandler(w http.ResponseWriter, r *http.Request) {
	email, ok := currentUser(w, r)
	if !ok {
		return
	}

	songID, err := pathID(r, "songId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	liked, err := h.liked.IsLiked(r.Context(), email, songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LikedResponse{Liked: liked})
}
