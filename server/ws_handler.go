package server

import (
	"net/http"

	"TuneLib/core/notify"
	"TuneLib/logger"
)

// LibraryWebSocketHandler GET /ws/library?token=...
// 浏览器的 WebSocket 无法设置 header，token 走查询参数，也接受 Authorization。
func (h *Handler) LibraryWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.NotFound(w, r)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	if token == "" {
		writeUnauthorized(w)
		return
	}

	email, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[Notify] WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	client := notify.NewClient(h.hub, conn, email)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	logger.Info("[Notify] WebSocket 连接建立", logger.Email(email))
}
