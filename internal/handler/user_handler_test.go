package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"crowdfund/internal/model"
	"crowdfund/internal/repository"
	"crowdfund/internal/service"

	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenHeader = "X-Authorization"

// memRepo 测试用内存存储
type memRepo struct {
	users    map[uint]*model.User
	tokenErr error
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[uint]*model.User{}}
}

func (m *memRepo) FindByID(_ context.Context, id uint, includeDeleted bool) (*model.PublicUser, error) {
	u, ok := m.users[id]
	if !ok || (!includeDeleted && u.Deleted != 0) {
		return nil, repository.ErrNotFound
	}
	return &model.PublicUser{ID: u.ID, Username: u.Username, Location: u.Location, Email: u.Email}, nil
}

func (m *memRepo) Create(_ context.Context, user *model.User) (uint, error) {
	for _, u := range m.users {
		if u.Username == user.Username {
			return 0, &mysqldriver.MySQLError{Number: 1062}
		}
	}
	cp := *user
	cp.ID = uint(len(m.users) + 1)
	m.users[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) UpdateProfile(_ context.Context, id uint, user *model.User) (int64, error) {
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	u.Username, u.Location, u.Email, u.Hash, u.Salt = user.Username, user.Location, user.Email, user.Hash, user.Salt
	return 1, nil
}

func (m *memRepo) SoftDelete(_ context.Context, id uint) (int64, error) {
	if u, ok := m.users[id]; ok && u.Deleted == 0 {
		u.Deleted = 1
		return 1, nil
	}
	return 0, nil
}

func (m *memRepo) FindCredentials(_ context.Context, username string) (*model.Credentials, error) {
	for _, u := range m.users {
		if u.Username == username && u.Deleted == 0 {
			return &model.Credentials{Hash: u.Hash, Salt: u.Salt}, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) SetToken(_ context.Context, username, tok string) (int64, error) {
	for _, u := range m.users {
		if u.Username == username {
			u.Token = &tok
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memRepo) ClearToken(_ context.Context, tok string) (int64, error) {
	for _, u := range m.users {
		if u.Token != nil && *u.Token == tok {
			u.Token = nil
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memRepo) FindIDByToken(_ context.Context, tok string) (uint, error) {
	if m.tokenErr != nil {
		return 0, m.tokenErr
	}
	for _, u := range m.users {
		if u.Token != nil && *u.Token == tok && u.Deleted == 0 {
			return u.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(repo *memRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewUserService(repo)
	r := gin.New()
	NewUserHandler(svc).Mount(r.Group("/api/v1/users"), AuthMiddleware(svc, tokenHeader))
	return r
}

func do(t *testing.T, r http.Handler, method, path, tok string, body interface{}) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set(tokenHeader, tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func createAndLogin(t *testing.T, r http.Handler, username, pass string) (uint, string) {
	t.Helper()
	env := do(t, r, http.MethodPost, "/api/v1/users", "", gin.H{"username": username, "email": username + "@valhalla.biz", "password": pass})
	require.Equal(t, 0, env.Code, env.Message)

	env = do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{"username": username, "password": pass})
	require.Equal(t, 0, env.Code, env.Message)

	var login struct {
		ID    uint   `json:"id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.Len(t, login.Token, 32)
	return login.ID, login.Token
}

func TestCreate_MissingPassword(t *testing.T) {
	r := newRouter(newMemRepo())
	env := do(t, r, http.MethodPost, "/api/v1/users", "", gin.H{"username": "loki"})
	assert.Equal(t, http.StatusBadRequest, env.Code)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	r := newRouter(newMemRepo())
	createAndLogin(t, r, "loki", "toki")

	env := do(t, r, http.MethodPost, "/api/v1/users", "", gin.H{"username": "loki", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.Equal(t, "username already exists", env.Message)
}

func TestLogin_WrongPassword(t *testing.T) {
	r := newRouter(newMemRepo())
	createAndLogin(t, r, "loki", "toki")

	env := do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{"username": "loki", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, env.Code)
}

func TestGet_PublicProjection(t *testing.T) {
	r := newRouter(newMemRepo())
	id, _ := createAndLogin(t, r, "loki", "toki")

	env := do(t, r, http.MethodGet, "/api/v1/users/"+itoa(id), "", nil)
	require.Equal(t, 0, env.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.EqualValues(t, id, body["id"])
	assert.Equal(t, "loki", body["username"])
	assert.NotContains(t, body, "hash")
	assert.NotContains(t, body, "salt")
	assert.NotContains(t, body, "token")

	env = do(t, r, http.MethodGet, "/api/v1/users/99", "", nil)
	assert.Equal(t, http.StatusNotFound, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/users/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestAuthMiddleware_RejectsMissingAndUnknownToken(t *testing.T) {
	r := newRouter(newMemRepo())
	createAndLogin(t, r, "loki", "toki")

	env := do(t, r, http.MethodPost, "/api/v1/users/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/users/logout", "ffffffffffffffffffffffffffffffff", nil)
	assert.Equal(t, http.StatusUnauthorized, env.Code)
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	repo := newMemRepo()
	repo.tokenErr = errors.New("connection lost")
	r := newRouter(repo)

	env := do(t, r, http.MethodPost, "/api/v1/users/logout", "tok", nil)
	assert.Equal(t, http.StatusInternalServerError, env.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	r := newRouter(newMemRepo())
	_, tok := createAndLogin(t, r, "loki", "toki")

	env := do(t, r, http.MethodPost, "/api/v1/users/logout", tok, nil)
	require.Equal(t, 0, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/users/logout", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, env.Code)
}

func TestUpdate_OnlySelf(t *testing.T) {
	r := newRouter(newMemRepo())
	lokiID, lokiTok := createAndLogin(t, r, "loki", "toki")
	tokiID, _ := createAndLogin(t, r, "toki", "loki")

	update := gin.H{"username": "loki", "location": "Asgard", "email": "loki@asgard.biz", "password": "mischief"}

	env := do(t, r, http.MethodPut, "/api/v1/users/"+itoa(tokiID), lokiTok, update)
	assert.Equal(t, http.StatusForbidden, env.Code)

	env = do(t, r, http.MethodPut, "/api/v1/users/"+itoa(lokiID), lokiTok, update)
	require.Equal(t, 0, env.Code, env.Message)

	env = do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{"username": "loki", "password": "mischief"})
	assert.Equal(t, 0, env.Code)
}

func TestDelete_SoftDeletesAndDeniesLogin(t *testing.T) {
	r := newRouter(newMemRepo())
	id, tok := createAndLogin(t, r, "loki", "toki")

	env := do(t, r, http.MethodDelete, "/api/v1/users/"+itoa(id), tok, nil)
	require.Equal(t, 0, env.Code, env.Message)

	env = do(t, r, http.MethodGet, "/api/v1/users/"+itoa(id), "", nil)
	assert.Equal(t, http.StatusNotFound, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{"username": "loki", "password": "toki"})
	assert.Equal(t, http.StatusBadRequest, env.Code)

	// 已删除用户的旧令牌不能再通过认证
	env = do(t, r, http.MethodDelete, "/api/v1/users/"+itoa(id), tok, nil)
	assert.Equal(t, http.StatusUnauthorized, env.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
