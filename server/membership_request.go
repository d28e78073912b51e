package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"TuneLib/core/library"
	"TuneLib/model"
)

// flexibleID 前端有时把 songId 作为字符串提交，数字和数字字符串都接受
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = bytes.TrimSpace(data[1 : len(data)-1])
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return &library.ValidationError{Field: "songId", Reason: "must be an integer"}
	}
	*f = flexibleID(n)
	return nil
}

// membershipRequest 喜欢/加入歌单的请求体
type membershipRequest struct {
	SongID    flexibleID `json:"songId"`
	SongTitle string     `json:"songTitle"`
	Artist    string     `json:"artist"`
	MovieName string     `json:"movieName"`
	ImageURL  string     `json:"imageUrl"`
	AudioSrc  string     `json:"audioSrc"`
}

func (req membershipRequest) meta() model.SongMeta {
	return model.SongMeta{
		SongID: int64(req.SongID),
		SongSnapshot: model.SongSnapshot{
			SongTitle: req.SongTitle,
			Artist:    req.Artist,
			MovieName: req.MovieName,
			ImageURL:  req.ImageURL,
			AudioSrc:  req.AudioSrc,
		},
	}
}

func decodeMembershipRequest(r *http.Request) (model.SongMeta, error) {
	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if library.IsValidationError(err) {
			return model.SongMeta{}, err
		}
		return model.SongMeta{}, &library.ValidationError{Field: "body", Reason: "is not valid JSON: " + err.Error()}
	}
	return req.meta(), nil
}

// currentUser AuthMiddleware 之后一定有值；没有时按未认证处理
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := UserEmailFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
	}
	return email, ok
}

func emptyIfNil(records []*model.MembershipRecord) []*model.MembershipRecord {
	if records == nil {
		return []*model.MembershipRecord{}
	}
	return records
}
