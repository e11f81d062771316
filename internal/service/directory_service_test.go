package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

func TestEmployeeListPinsInchargeToUnit(t *testing.T) {
	svc := NewEmployeeService(newStubEmployees(
		models.Employee{ID: "emp-1", Name: "Arjun", UnitID: strPtr("unit-a")},
		models.Employee{ID: "emp-2", Name: "Meena", UnitID: strPtr("unit-b")},
	), nil, zap.NewNop())
	ctx := context.Background()

	all, page, err := svc.List(ctx, adminClaims(), dto.EmployeeListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 20, page.PageSize)

	scoped, _, err := svc.List(ctx, inchargeClaims("unit-b"), dto.EmployeeListQuery{UnitID: "unit-a"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "emp-2", scoped[0].ID)

	_, err = svc.Get(ctx, inchargeClaims("unit-b"), "emp-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	names, err := svc.Names(ctx, []string{"emp-1", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"emp-1": "Arjun"}, names)
}

func TestHolidayCreateAndDeactivate(t *testing.T) {
	repo := &stubHolidays{}
	audit := &recordingAudit{}
	svc := NewHolidayService(repo, NewAuditService(audit, zap.NewNop()), nil, zap.NewNop())
	ctx := context.Background()

	h, err := svc.Create(ctx, adminClaims(), dto.CreateHolidayRequest{Date: "2024-08-15", Name: "Independence Day", Type: "GAZETTED"})
	require.NoError(t, err)

	ok, err := svc.IsHoliday(ctx, models.MustParseDate("2024-08-15"), models.HolidayGazetted)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Deactivate(ctx, adminClaims(), h.ID))
	ok, err = svc.IsHoliday(ctx, models.MustParseDate("2024-08-15"), models.HolidayGazetted)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Deactivate(ctx, adminClaims(), "missing"), appErrors.ErrNotFound)
	_, err = svc.Create(ctx, adminClaims(), dto.CreateHolidayRequest{Date: "15-08-2024", Name: "x", Type: "GAZETTED"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, []string{models.AuditActionHolidayCreate, models.AuditActionHolidayDeactivate}, audit.actions())
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheServiceDegradesToMiss(t *testing.T) {
	svc := NewCacheService(failingCache{}, NewMetricsService(), 0, zap.NewNop(), true)
	ctx := context.Background()

	var dest map[string]string
	assert.False(t, svc.Get(ctx, "roster:2024:03", &dest))
	svc.Set(ctx, "roster:2024:03", map[string]string{"a": "b"}, 0)
	svc.Invalidate(ctx, RosterCachePattern(2024))

	disabled := NewCacheService(&memCache{data: map[string][]byte{}}, nil, time.Minute, nil, false)
	assert.False(t, disabled.Enabled())
	assert.False(t, disabled.Get(ctx, "k", &dest))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "roster:2024:03", RosterCacheKey(2024, 3))
	assert.Equal(t, "roster:2024:*", RosterCachePattern(2024))
}

func TestAuditServiceRecordsRequestMeta(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewAuditService(audit, nil)
	ctx := WithRequestMeta(context.Background(), RequestMeta{IP: "10.0.0.1", UserAgent: "curl"})

	svc.Record(ctx, "admin-1", models.AuditActionLeaveCreate, "leave", "leave-1", nil, map[string]int{"days": 3})
	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, "curl", entry.UserAgent)
	assert.Nil(t, entry.OldValues)
	assert.JSONEq(t, `{"days":3}`, string(entry.NewValues))
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "leave-1", *entry.ResourceID)

	var nilSvc *AuditService
	nilSvc.Record(ctx, "", "X", "y", "", nil, nil)
}
