package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"TuneLib/core/auth"
	"TuneLib/core/catalog"
	"TuneLib/core/library"
	"TuneLib/core/notify"
	"TuneLib/db"
	"TuneLib/model"
	"TuneLib/repository"
	"TuneLib/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	handler http.Handler
	db      *gorm.DB
	jwt     *auth.JWTManager
	hub     *notify.Hub
	covers  *fakeCovers
}

// fakeCovers 内存中的对象存储
type fakeCovers struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeCovers() *fakeCovers {
	return &fakeCovers{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeCovers) PutCover(_ context.Context, songID int64, r io.Reader, _ int64, contentType, ext string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	name := storage.CoverObjectName(songID, ext)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
	f.types[name] = contentType
	return name, nil
}

func (f *fakeCovers) GetObject(_ context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Size: int64(len(data)), ContentType: f.types[name]}, nil
}

func setupEnv(t *testing.T, withCovers bool) *testEnv {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrateModels(gormDB))
	t.Cleanup(func() { db.CloseGormDB(gormDB) })

	hub := notify.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	membership := repository.NewGormMembershipRepository(gormDB)
	env := &testEnv{
		db:  gormDB,
		jwt: auth.NewJWTManager("test-secret", "", time.Hour),
		hub: hub,
	}

	deps := Deps{
		Catalog:     catalog.NewService(repository.NewGormSongRepository(gormDB)),
		Liked:       library.NewLikeService(membership, hub),
		Playlist:    library.NewPlaylistService(membership, hub),
		Resolver:    env.jwt,
		Hub:         hub,
		HealthCheck: func() error { return db.Ping(gormDB) },
	}
	if withCovers {
		env.covers = newFakeCovers()
		deps.Covers = env.covers
	}

	env.handler = NewRouter(NewHandler(deps), "http://localhost:3000")
	return env
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	token, err := e.jwt.Issue(email)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) rows(t *testing.T, rel model.Relation) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Table(rel.Table()).Count(&n).Error)
	return n
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func songPayload(id interface{}, title string) map[string]interface{} {
	return map[string]interface{}{
		"songId":    id,
		"songTitle": title,
		"artist":    "Artist",
		"movieName": "Movie",
		"imageUrl":  "/img/1.jpg",
		"audioSrc":  "/audio/1.mp3",
	}
}

func TestSongsCRUD(t *testing.T) {
	env := setupEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/songs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/songs", "", map[string]interface{}{
		"id": 999, "title": "Tum Hi Ho", "artist": "Arijit", "audioSrc": "/a.mp3", "imageUrl": "/i.jpg",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[model.Song](t, rec)
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, int64(999), created.ID)
	assert.Equal(t, "Tum Hi Ho", created.Title)

	rec = env.do(t, http.MethodGet, "/api/songs/"+itoa(created.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Song](t, rec)
	assert.Equal(t, "/a.mp3", got.AudioSrc)
	assert.Equal(t, "/i.jpg", got.ImageURL)

	rec = env.do(t, http.MethodGet, "/api/songs", "", nil)
	assert.Len(t, decode[[]model.Song](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/songs/"+itoa(created.ID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/songs/"+itoa(created.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestSongsInvalidInput(t *testing.T) {
	env := setupEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/songs/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/songs", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
}

func TestLikedSongsFlow(t *testing.T) {
	env := setupEnv(t, false)
	token := env.token(t, "a@x.com")

	rec := env.do(t, http.MethodGet, "/api/liked-songs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/liked-songs/toggle", token, songPayload(42, "Song A"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"liked":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/liked-songs/check/42", token, nil)
	assert.JSONEq(t, `{"liked":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/liked-songs", token, nil)
	records := decode[[]model.MembershipRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "a@x.com", records[0].UserEmail)
	assert.Equal(t, int64(42), records[0].SongID)
	assert.Equal(t, "Song A", records[0].SongTitle)
	assert.Equal(t, "Movie", records[0].MovieName)

	// songId 以字符串提交
	rec = env.do(t, http.MethodPost, "/api/liked-songs/toggle", token, songPayload("42", "Song A"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"liked":false}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/liked-songs/check/42", token, nil)
	assert.JSONEq(t, `{"liked":false}`, rec.Body.String())
	assert.Equal(t, int64(0), env.rows(t, model.RelationLiked))
}

func TestPlaylistFlow(t *testing.T) {
	env := setupEnv(t, false)
	token := env.token(t, "b@x.com")

	rec := env.do(t, http.MethodPost, "/api/playlist-songs/add", token, songPayload(7, "Seven"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"added":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/playlist-songs/add", token, songPayload(7, "Seven"))
	assert.JSONEq(t, `{"added":false}`, rec.Body.String())
	assert.Equal(t, int64(1), env.rows(t, model.RelationPlaylist))

	rec = env.do(t, http.MethodGet, "/api/playlist-songs/check/7", token, nil)
	assert.JSONEq(t, `{"inPlaylist":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/playlist-songs", token, nil)
	assert.Len(t, decode[[]model.MembershipRecord](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/playlist-songs/remove/7", token, nil)
	assert.JSONEq(t, `{"removed":true}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/playlist-songs/remove/7", token, nil)
	assert.JSONEq(t, `{"removed":false}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/playlist-songs/check/7", token, nil)
	assert.JSONEq(t, `{"inPlaylist":false}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/playlist-songs", token, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUnauthorizedRequestsDoNotTouchStore(t *testing.T) {
	env := setupEnv(t, false)

	other := auth.NewJWTManager("other-secret", "", time.Hour)
	forged, err := other.Issue("a@x.com")
	require.NoError(t, err)

	expiredMgr := auth.NewJWTManager("test-secret", "", -time.Minute)
	expired, err := expiredMgr.Issue("a@x.com")
	require.NoError(t, err)

	tokens := map[string]string{
		"missing": "",
		"garbage": "not-a-jwt",
		"forged":  forged,
		"expired": expired,
	}

	requests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/api/liked-songs", nil},
		{http.MethodPost, "/api/liked-songs/toggle", songPayload(1, "One")},
		{http.MethodGet, "/api/liked-songs/check/1", nil},
		{http.MethodGet, "/api/playlist-songs", nil},
		{http.MethodPost, "/api/playlist-songs/add", songPayload(1, "One")},
		{http.MethodDelete, "/api/playlist-songs/remove/1", nil},
		{http.MethodGet, "/api/playlist-songs/check/1", nil},
	}

	for name, token := range tokens {
		for _, req := range requests {
			t.Run(name+" "+req.method+" "+req.path, func(t *testing.T) {
				rec := env.do(t, req.method, req.path, token, req.body)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Equal(t, unauthorizedMessage, strings.TrimSpace(rec.Body.String()))
			})
		}
	}

	assert.Equal(t, int64(0), env.rows(t, model.RelationLiked))
	assert.Equal(t, int64(0), env.rows(t, model.RelationPlaylist))
}

func TestMembershipValidation(t *testing.T) {
	env := setupEnv(t, false)
	token := env.token(t, "a@x.com")

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing title", body: songPayload(1, "  ")},
		{name: "zero id", body: songPayload(0, "Zero")},
		{name: "negative id", body: songPayload(-3, "Neg")},
		{name: "non numeric id", body: songPayload("abc", "Bad")},
		{name: "fractional id", body: songPayload(1.5, "Bad")},
		{name: "missing id", body: map[string]interface{}{"songTitle": "No id"}},
		{name: "malformed json", body: `{"songId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/liked-songs/toggle", "/api/playlist-songs/add"} {
				rec := env.do(t, http.MethodPost, path, token, tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, path)
				assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/liked-songs/check/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/playlist-songs/remove/0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, int64(0), env.rows(t, model.RelationLiked))
	assert.Equal(t, int64(0), env.rows(t, model.RelationPlaylist))
}

func TestUserIsolation(t *testing.T) {
	env := setupEnv(t, false)
	alice := env.token(t, "alice@x.com")
	bob := env.token(t, "bob@x.com")

	env.do(t, http.MethodPost, "/api/liked-songs/toggle", alice, songPayload(5, "Five"))
	env.do(t, http.MethodPost, "/api/playlist-songs/add", alice, songPayload(5, "Five"))

	rec := env.do(t, http.MethodGet, "/api/liked-songs/check/5", bob, nil)
	assert.JSONEq(t, `{"liked":false}`, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/playlist-songs", bob, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// bob 的 toggle 只影响自己
	rec = env.do(t, http.MethodPost, "/api/liked-songs/toggle", bob, songPayload(5, "Five"))
	assert.JSONEq(t, `{"liked":true}`, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/liked-songs/check/5", alice, nil)
	assert.JSONEq(t, `{"liked":true}`, rec.Body.String())
	assert.Equal(t, int64(2), env.rows(t, model.RelationLiked))
}

func TestCORSAndRequestID(t *testing.T) {
	env := setupEnv(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/liked-songs/toggle", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func coverRequest(t *testing.T, songID int64, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="cover"; filename="cover.PNG"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/songs/"+itoa(songID)+"/cover", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCoverUploadAndMedia(t *testing.T) {
	env := setupEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/songs", "", map[string]string{"title": "Covered"})
	require.Equal(t, http.StatusOK, rec.Code)
	song := decode[model.Song](t, rec)

	image := []byte("\x89PNG fake image")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, coverRequest(t, song.ID, "image/png", image))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[model.Song](t, rec)
	prefix := "/media/covers/" + itoa(song.ID) + "/"
	assert.True(t, strings.HasPrefix(updated.ImageURL, prefix), updated.ImageURL)
	assert.True(t, strings.HasSuffix(updated.ImageURL, ".png"), updated.ImageURL)

	rec = env.do(t, http.MethodGet, updated.ImageURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, image, rec.Body.Bytes())

	rec = env.do(t, http.MethodGet, "/media/covers/1/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 非图片
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, coverRequest(t, song.ID, "text/plain", []byte("hi")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 不存在的歌曲
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, coverRequest(t, song.ID+100, "image/png", image))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCoverUploadWithoutStorage(t *testing.T) {
	env := setupEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/songs", "", map[string]string{"title": "Plain"})
	song := decode[model.Song](t, rec)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, coverRequest(t, song.ID, "image/png", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cover storage is not enabled", decode[ErrorResponse](t, rec).Error)
}

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: `42`, want: 42},
		{in: `"42"`, want: 42},
		{in: `" 7 "`, want: 7},
		{in: `null`, want: 0},
		{in: `"x"`, wantErr: true},
		{in: `4.2`, wantErr: true},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id flexibleID
			err := id.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				assert.True(t, library.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, int64(id))
		})
	}
}
