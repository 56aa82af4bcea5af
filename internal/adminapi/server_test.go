package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/neuronai/neuronbot/internal/access"
	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/logging"
)

type fakeAccess struct {
	infos   map[int64]*access.Info
	reset   []int64
	resetOK bool
}

func (f *fakeAccess) UserInfo(ctx context.Context, externalID int64) (*access.Info, error) {
	if info, ok := f.infos[externalID]; ok {
		return info, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeAccess) ResetWindow(ctx context.Context, externalID int64) (bool, error) {
	f.reset = append(f.reset, externalID)
	return f.resetOK, nil
}

func (f *fakeAccess) ExtendMany(ctx context.Context, externalIDs []int64) (*access.ExtendResult, error) {
	result := &access.ExtendResult{Success: []int64{}, Failed: []int64{}}
	for _, id := range externalIDs {
		if _, ok := f.infos[id]; ok {
			result.Success = append(result.Success, id)
		} else {
			result.Failed = append(result.Failed, id)
		}
	}
	return result, nil
}

func (f *fakeAccess) ActiveUsers(ctx context.Context) ([]access.Info, error) {
	users := []access.Info{}
	for _, info := range f.infos {
		if info.HasAccess {
			users = append(users, *info)
		}
	}
	return users, nil
}

func (f *fakeAccess) ExpiredUsers(ctx context.Context) ([]access.Info, error) {
	users := []access.Info{}
	for _, info := range f.infos {
		if !info.HasAccess {
			users = append(users, *info)
		}
	}
	return users, nil
}

const testPassword = "s3cret"

func newTestAPI(t *testing.T, fa *fakeAccess) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewServer(fa, "admin", string(hash), []byte("test-secret"), time.Minute, logger)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, username, password string) (string, int) {
	t.Helper()
	body, _ := json.Marshal(loginRequest{Username: username, Password: password})
	res, err := http.Post(srv.URL+"/api/v1/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", res.StatusCode
	}
	var lr loginResponse
	if err := json.NewDecoder(res.Body).Decode(&lr); err != nil {
		t.Fatal(err)
	}
	return lr.Token, res.StatusCode
}

func doAuthed(t *testing.T, srv *httptest.Server, token, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestLogin(t *testing.T) {
	srv := newTestAPI(t, &fakeAccess{})

	token, status := login(t, srv, "admin", testPassword)
	if status != http.StatusOK || token == "" {
		t.Fatalf("valid login failed: status %d", status)
	}

	if _, status := login(t, srv, "admin", "wrong"); status != http.StatusUnauthorized {
		t.Fatalf("wrong password must be rejected, got %d", status)
	}
	if _, status := login(t, srv, "intruder", testPassword); status != http.StatusUnauthorized {
		t.Fatalf("wrong username must be rejected, got %d", status)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestAPI(t, &fakeAccess{})

	res := doAuthed(t, srv, "", http.MethodGet, "/api/v1/users/active", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token must be rejected, got %d", res.StatusCode)
	}

	res = doAuthed(t, srv, "garbage", http.MethodGet, "/api/v1/users/active", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token must be rejected, got %d", res.StatusCode)
	}
}

func TestUserInfo(t *testing.T) {
	now := time.Now().UTC()
	fa := &fakeAccess{infos: map[int64]*access.Info{
		42: {ExternalID: 42, FirstSeenAt: now, AccessUntil: now.Add(time.Hour), HasAccess: true},
	}}
	srv := newTestAPI(t, fa)
	token, _ := login(t, srv, "admin", testPassword)

	res := doAuthed(t, srv, token, http.MethodGet, "/api/v1/users/42/access", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", res.StatusCode)
	}
	var info access.Info
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.ExternalID != 42 || !info.HasAccess {
		t.Fatalf("unexpected info: %+v", info)
	}

	res = doAuthed(t, srv, token, http.MethodGet, "/api/v1/users/7/access", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user must be 404, got %d", res.StatusCode)
	}

	res = doAuthed(t, srv, token, http.MethodGet, "/api/v1/users/abc/access", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-numeric id must be 400, got %d", res.StatusCode)
	}
}

func TestExtend(t *testing.T) {
	now := time.Now().UTC()
	fa := &fakeAccess{
		infos: map[int64]*access.Info{
			42: {ExternalID: 42, FirstSeenAt: now, AccessUntil: now.Add(time.Hour), HasAccess: true},
		},
		resetOK: true,
	}
	srv := newTestAPI(t, fa)
	token, _ := login(t, srv, "admin", testPassword)

	res := doAuthed(t, srv, token, http.MethodPost, "/api/v1/users/42/extend", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", res.StatusCode)
	}
	if len(fa.reset) != 1 || fa.reset[0] != 42 {
		t.Fatalf("window not reset: %v", fa.reset)
	}
}

func TestExtendMany(t *testing.T) {
	now := time.Now().UTC()
	fa := &fakeAccess{
		infos: map[int64]*access.Info{
			1: {ExternalID: 1, FirstSeenAt: now, HasAccess: true},
		},
		resetOK: true,
	}
	srv := newTestAPI(t, fa)
	token, _ := login(t, srv, "admin", testPassword)

	body, _ := json.Marshal(extendManyRequest{IDs: []int64{1, 2}})
	res := doAuthed(t, srv, token, http.MethodPost, "/api/v1/users/extend", body)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", res.StatusCode)
	}
	var result access.ExtendResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Success) != 1 || result.Success[0] != 1 || len(result.Failed) != 1 || result.Failed[0] != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	res = doAuthed(t, srv, token, http.MethodPost, "/api/v1/users/extend", []byte(`{"ids":[]}`))
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty ids must be 400, got %d", res.StatusCode)
	}
}

func TestListings(t *testing.T) {
	now := time.Now().UTC()
	fa := &fakeAccess{infos: map[int64]*access.Info{
		1: {ExternalID: 1, FirstSeenAt: now, HasAccess: true},
		2: {ExternalID: 2, FirstSeenAt: now.Add(-48 * time.Hour), HasAccess: false},
	}}
	srv := newTestAPI(t, fa)
	token, _ := login(t, srv, "admin", testPassword)

	for path, wantID := range map[string]int64{
		"/api/v1/users/active":  1,
		"/api/v1/users/expired": 2,
	} {
		res := doAuthed(t, srv, token, http.MethodGet, path, nil)
		var users []access.Info
		if err := json.NewDecoder(res.Body).Decode(&users); err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if len(users) != 1 || users[0].ExternalID != wantID {
			t.Fatalf("%s: unexpected users %+v", path, users)
		}
	}
}
