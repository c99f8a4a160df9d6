package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"printdesk-chat/internal/mocks"
	"printdesk-chat/internal/models"
	"printdesk-chat/internal/repositories"
	"printdesk-chat/internal/ws"
)

const adminEmail = "admin@printdesk.local"

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/messages", handler.GetMessages)
	r.GET("/messages/conversation/:identity", handler.GetConversation)
	r.POST("/messages", handler.PostMessage)
	r.DELETE("/messages/:id", handler.DeleteMessage)
	return r
}

func newHandler(repo *mocks.MessageRepositoryMock) *ChatHandler {
	return NewChatHandler(repo, ws.NewHub(ws.NewRegistry()), adminEmail, nil)
}

func TestGetMessagesMissingParams(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	for _, target := range []string{"/messages", "/messages?user1=u1@x.com", "/messages?user2=u1@x.com"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
	repo.AssertNotCalled(t, "FindConversation", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesOrderedConversation(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.On("FindConversation", mock.Anything, "u1@x.com", adminEmail).Return([]models.Message{
		{ID: "m1", Sender: "u1@x.com", Receiver: adminEmail, Body: "hi", Timestamp: base},
		{ID: "m2", Sender: adminEmail, Receiver: "u1@x.com", Body: "hello", Timestamp: base.Add(time.Minute)},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?user1=u1@x.com&user2="+adminEmail, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "u1@x.com", resp[0]["sender"])
	assert.Equal(t, "hi", resp[0]["message"])
	assert.Equal(t, adminEmail, resp[1]["sender"])
	assert.Equal(t, "hello", resp[1]["message"])
	repo.AssertExpectations(t)
}

func TestGetMessagesEmptyConversation(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	repo.On("FindConversation", mock.Anything, "u1@x.com", "u2@x.com").Return(([]models.Message)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?user1=u1@x.com&user2=u2@x.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	repo.AssertExpectations(t)
}

func TestGetConversationPairsWithAdmin(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	repo.On("FindConversation", mock.Anything, "u1@x.com", adminEmail).Return([]models.Message{
		{ID: "m1", Sender: "u1@x.com", Receiver: adminEmail, Body: "hi"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/conversation/u1@x.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetMessagesRepoError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	repo.On("FindConversation", mock.Anything, "u1@x.com", "u2@x.com").Return(([]models.Message)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?user1=u1@x.com&user2=u2@x.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertExpectations(t)
}

func TestPostMessageSuccess(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	stored := models.Message{ID: "m1", Sender: "u1@x.com", Receiver: adminEmail, Body: "hi"}
	repo.On("Create", mock.Anything, "u1@x.com", adminEmail, "hi").Return(stored, nil).Once()

	body := bytes.NewBufferString(`{"sender":"u1@x.com","receiver":"` + adminEmail + `","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "m1", resp["id"])
	assert.Equal(t, "hi", resp["message"])
	repo.AssertExpectations(t)
}

func TestPostMessageMissingReceiver(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	body := bytes.NewBufferString(`{"sender":"u1@x.com","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	// Validation failures must not touch the store.
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessagePersistenceError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	repo.On("Create", mock.Anything, "u1@x.com", adminEmail, "hi").Return(models.Message{}, assert.AnError).Once()

	body := bytes.NewBufferString(`{"sender":"u1@x.com","receiver":"` + adminEmail + `","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertExpectations(t)
}

func TestDeleteMessageSuccess(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	repo.On("DeleteByID", mock.Anything, "m1").Return("u1@x.com", adminEmail, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/m1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Message deleted successfully"}`, rec.Body.String())
	repo.AssertExpectations(t)
}

func TestDeleteMessageNotFound(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(newHandler(repo))

	repo.On("DeleteByID", mock.Anything, "gone").Return("", "", repositories.ErrMessageNotFound).Twice()

	// Deleting twice returns not found both times; the delete is idempotent
	// in effect, not in status.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/messages/gone", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	repo.AssertExpectations(t)
}
