package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/auth"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func setupAuthRouter(users repositories.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(users, auth.NewTokenManager("test-secret"), nil)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	return r
}

func TestRegisterSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.UID != "" && u.Nickname == "Ana" && u.Profession == "vet" &&
			u.PasswordHash != "" && u.PasswordHash != "secret1"
	})).Return(nil).Once()

	body := bytes.NewBufferString(`{"nickname":"Ana","profession":"vet","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["uid"])
	users.AssertExpectations(t)
}

func TestRegisterWeakPassword(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	body := bytes.NewBufferString(`{"nickname":"Ana","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegisterNicknameTaken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	users.On("CreateUser", mock.Anything, mock.Anything).Return(repositories.ErrNicknameTaken).Once()

	body := bytes.NewBufferString(`{"nickname":"Ana","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	users.AssertExpectations(t)
}

func TestRegisterMissingFields(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"nickname":"Ana"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestLoginSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	users.On("GetUserByNickname", mock.Anything, "Ana").Return(models.User{
		UID: "ana", Nickname: "Ana", PasswordHash: hash,
	}, nil).Once()

	body := bytes.NewBufferString(`{"nickname":"Ana","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ana", resp.User.UID)
	assert.NotContains(t, rec.Body.String(), hash)

	uid, err := auth.NewTokenManager("test-secret").Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", uid)
	users.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	users.On("GetUserByNickname", mock.Anything, "Ana").Return(models.User{
		UID: "ana", Nickname: "Ana", PasswordHash: hash,
	}, nil).Once()

	body := bytes.NewBufferString(`{"nickname":"Ana","password":"wrong-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	users.AssertExpectations(t)
}

func TestLoginUnknownNickname(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(users)

	users.On("GetUserByNickname", mock.Anything, "Ghost").Return(nil, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"nickname":"Ghost","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	users.AssertExpectations(t)
}
