package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"TuneLib/core/auth"
	"TuneLib/core/library"
	"TuneLib/logger"
)

// unauthorizedMessage 401 的响应体，纯文本
const unauthorizedMessage = "Invalid or expired token"

// ErrorResponse 400 的响应体
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("[HTTP] 写入响应失败", logger.ErrorField(err))
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	http.Error(w, unauthorizedMessage, http.StatusUnauthorized)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// writeServiceError 身份类错误返回 401，其余统一 400
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, library.ErrMissingIdentity) || errors.Is(err, auth.ErrInvalidToken) {
		writeUnauthorized(w)
		return
	}

	if library.IsValidationError(err) {
		logger.Warn("[HTTP] 请求参数不合法",
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
	} else {
		logger.Error("[HTTP] 处理请求失败",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
	}
	writeBadRequest(w, err.Error())
}
