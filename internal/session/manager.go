package session

import (
	"context"
	"errors"
	"fmt"

	"chatapp/internal/audit"
	"chatapp/internal/models"
	"chatapp/internal/repositories"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Manager owns user presence transitions and the login/logout audit
// trail.
type Manager struct {
	users repositories.UserRepository
	sink  *audit.Sink
}

// NewManager constructs a Manager.
func NewManager(users repositories.UserRepository, sink *audit.Sink) *Manager {
	return &Manager{users: users, sink: sink}
}

// Register creates a new offline user with the default role and returns
// its id. Registration deliberately writes no history entry; only login
// and logout are audited.
func (m *Manager) Register(ctx context.Context, username, password string) (int, error) {
	_, err := m.users.GetByUsername(ctx, username)
	if err == nil {
		return 0, repositories.ErrDuplicateUsername
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return 0, fmt.Errorf("check username: %w", err)
	}

	user, err := m.users.CreateUser(ctx, username, password)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return user.ID, nil
}

// Login matches the exact credential pair, marks the user online and
// records a LOGIN history entry.
func (m *Manager) Login(ctx context.Context, username, password string) (int, error) {
	user, err := m.users.GetByCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, fmt.Errorf("lookup credentials: %w", err)
	}

	if err := m.users.UpdateStatus(ctx, user.ID, models.StatusOnline); err != nil {
		return 0, fmt.Errorf("set online: %w", err)
	}

	if err := m.sink.Record(ctx, user.ID, models.ActionLogin, "User logged in"); err != nil {
		return 0, fmt.Errorf("record login: %w", err)
	}
	return user.ID, nil
}

// Logout marks the user offline and records a LOGOUT history entry.
func (m *Manager) Logout(ctx context.Context, userID int) error {
	if _, err := m.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := m.users.UpdateStatus(ctx, userID, models.StatusOffline); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}

	if err := m.sink.Record(ctx, userID, models.ActionLogout, "User logged out"); err != nil {
		return fmt.Errorf("record logout: %w", err)
	}
	return nil
}

// Connect marks a user online when a realtime connection attaches. No
// history entry is written for presence flips driven by the socket.
func (m *Manager) Connect(ctx context.Context, userID int) error {
	return m.users.UpdateStatus(ctx, userID, models.StatusOnline)
}

// Disconnect marks a user offline when its realtime connection detaches.
func (m *Manager) Disconnect(ctx context.Context, userID int) error {
	return m.users.UpdateStatus(ctx, userID, models.StatusOffline)
}
