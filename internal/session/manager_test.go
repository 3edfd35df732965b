package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatapp/internal/audit"
	"chatapp/internal/mocks"
	"chatapp/internal/models"
	"chatapp/internal/repositories"
)

func newTestManager(users *mocks.UserRepositoryMock, history *mocks.HistoryRepositoryMock) *Manager {
	sink := audit.NewSink(history, nil, "audit.chat", "chatapp", "test")
	return NewManager(users, sink)
}

func TestRegisterSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	history := new(mocks.HistoryRepositoryMock)
	manager := newTestManager(users, history)

	users.On("GetByUsername", mock.Anything, "alice").Return(models.User{}, repositories.ErrUserNotFound).Once()
	users.On("CreateUser", mock.Anything, "alice", "pw1").
		Return(models.User{ID: 1, Username: "alice", Role: models.RoleUser, Status: models.StatusOffline}, nil).Once()

	id, err := manager.Register(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	users.AssertExpectations(t)
	// Registration writes no history entry.
	history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	manager := newTestManager(users, new(mocks.HistoryRepositoryMock))

	users.On("GetByUsername", mock.Anything, "alice").Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	_, err := manager.Register(context.Background(), "alice", "pw2")
	require.ErrorIs(t, err, repositories.ErrDuplicateUsername)

	users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	history := new(mocks.HistoryRepositoryMock)
	manager := newTestManager(users, history)

	users.On("GetByCredentials", mock.Anything, "alice", "pw1").Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	users.On("UpdateStatus", mock.Anything, 1, models.StatusOnline).Return(nil).Once()
	history.On("Append", mock.Anything, 1, models.ActionLogin, "User logged in", mock.Anything).
		Return(models.History{ID: 1}, nil).Once()

	id, err := manager.Login(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	users.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestLoginInvalidCredentials(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	history := new(mocks.HistoryRepositoryMock)
	manager := newTestManager(users, history)

	users.On("GetByCredentials", mock.Anything, "alice", "wrong").Return(models.User{}, repositories.ErrUserNotFound).Once()

	_, err := manager.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	users.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogoutSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	history := new(mocks.HistoryRepositoryMock)
	manager := newTestManager(users, history)

	users.On("GetByID", mock.Anything, 1).Return(models.User{ID: 1, Status: models.StatusOnline}, nil).Once()
	users.On("UpdateStatus", mock.Anything, 1, models.StatusOffline).Return(nil).Once()
	history.On("Append", mock.Anything, 1, models.ActionLogout, "User logged out", mock.Anything).
		Return(models.History{ID: 2}, nil).Once()

	require.NoError(t, manager.Logout(context.Background(), 1))

	users.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestLogoutUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	history := new(mocks.HistoryRepositoryMock)
	manager := newTestManager(users, history)

	users.On("GetByID", mock.Anything, 42).Return(models.User{}, repositories.ErrUserNotFound).Once()

	err := manager.Logout(context.Background(), 42)
	require.ErrorIs(t, err, repositories.ErrUserNotFound)

	users.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectAndDisconnect(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	manager := newTestManager(users, new(mocks.HistoryRepositoryMock))

	users.On("UpdateStatus", mock.Anything, 1, models.StatusOnline).Return(nil).Once()
	users.On("UpdateStatus", mock.Anything, 1, models.StatusOffline).Return(nil).Once()

	require.NoError(t, manager.Connect(context.Background(), 1))
	require.NoError(t, manager.Disconnect(context.Background(), 1))

	users.AssertExpectations(t)
}
