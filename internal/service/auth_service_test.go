package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo, *recordingAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "incharge.a", PasswordHash: string(hash), FullName: "Unit A", Role: models.RoleUnitIncharge, AssignedUnit: strPtr("unit-a"), Active: true},
		"user-2": {ID: "user-2", Username: "retired", PasswordHash: string(hash), Role: models.RoleCRQ, Active: false},
	}}
	audit := &recordingAudit{}
	svc := NewAuthService(repo, NewAuditService(audit, zap.NewNop()), nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "test",
	})
	return svc, repo, audit
}

func TestAuthLoginIssuesTokenWithAssignedUnit(t *testing.T) {
	svc, repo, audit := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "incharge.a", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "unit-a", resp.User.AssignedUnit)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.actions())

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleUnitIncharge, claims.Role)
	assert.Equal(t, "unit-a", claims.UnitScope())
}

func TestAuthLoginFailures(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "incharge.a", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "retired", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "x"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	other := NewAuthService(&mockAuthRepo{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	token, _, err := other.generateAccessToken(&models.User{ID: "user-9", Role: models.RoleOfficeAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthMe(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	info, err := svc.Me(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "incharge.a", info.Username)

	_, err = svc.Me(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
