package user

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{users: map[string]*User{}} }

func (m *memoryRepo) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	m.users[u.ID.String()] = u
	return nil
}

func (m *memoryRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepo) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func newTestService(repo Repository) Service {
	return &service{repo: repo, cost: bcrypt.MinCost, logger: zap.NewNop()}
}

func validRequest() RegisterRequest {
	return RegisterRequest{
		Email:     "mwila@example.com",
		Password:  "s3cret-pass",
		FirstName: "Mwila",
		Role:      RoleCashier,
		StoreID:   "0b5c3f0e-4a34-4f5e-9a77-1d9f4b1c2a10",
	}
}

func TestRegisterUserHashesPassword(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	u, err := svc.RegisterUser(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, u.StoreID)
	assert.Equal(t, RoleCashier, u.Role)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
}

func TestRegisterUserRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		code   string
	}{
		{"bad email", func(r *RegisterRequest) { r.Email = "nope" }, "INVALID_FIELDS"},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, "INVALID_FIELDS"},
		{"unknown role", func(r *RegisterRequest) { r.Role = "JANITOR" }, "INVALID_FIELDS"},
		{"missing store", func(r *RegisterRequest) { r.StoreID = "" }, "STORE_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := newTestService(newMemoryRepo()).RegisterUser(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestRegisterAdminWithoutStore(t *testing.T) {
	req := validRequest()
	req.Role = RoleAdmin
	req.StoreID = ""

	u, err := newTestService(newMemoryRepo()).RegisterUser(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, u.StoreID)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.RegisterUser(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.RegisterUser(context.Background(), validRequest())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestGetUserNotFound(t *testing.T) {
	_, err := newTestService(newMemoryRepo()).GetUser(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
