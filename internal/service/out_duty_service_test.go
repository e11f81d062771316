package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type memOutDuties struct {
	rows      map[string]models.OutDuty
	seq       int
	createErr error
}

func (m *memOutDuties) Create(ctx context.Context, duty *models.OutDuty) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	duty.ID = fmt.Sprintf("od-%d", m.seq)
	m.rows[duty.ID] = *duty
	return nil
}

func (m *memOutDuties) FindByID(ctx context.Context, id string) (*models.OutDuty, error) {
	d, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (m *memOutDuties) FindOngoing(ctx context.Context, employeeID string) (*models.OutDuty, error) {
	for _, d := range m.rows {
		if d.EmployeeID == employeeID && d.Status == models.OutDutyOngoing {
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memOutDuties) List(ctx context.Context, filter models.OutDutyFilter) ([]models.OutDuty, int, error) {
	var out []models.OutDuty
	for _, d := range m.rows {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *memOutDuties) Close(ctx context.Context, id string, status models.OutDutyStatus, actualReturn *models.Date, remarks string) (*models.OutDuty, error) {
	d, ok := m.rows[id]
	if !ok || d.Status != models.OutDutyOngoing {
		return nil, sql.ErrNoRows
	}
	d.Status = status
	d.ActualReturnDate = actualReturn
	if remarks != "" {
		d.Remarks = remarks
	}
	m.rows[id] = d
	return &d, nil
}

func newOutDutyFixture() (*OutDutyService, *memOutDuties, *recordingAudit) {
	repo := &memOutDuties{rows: map[string]models.OutDuty{}}
	audit := &recordingAudit{}
	employees := newStubEmployees(
		models.Employee{ID: "emp-1", Name: "Arjun", UnitID: strPtr("unit-a")},
		models.Employee{ID: "emp-2", Name: "Meena", UnitID: strPtr("unit-b")},
	)
	svc := NewOutDutyService(repo, employees, NewAuditService(audit, zap.NewNop()), nil, zap.NewNop(), time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC) }
	return svc, repo, audit
}

func outDutyRequest(employeeID string) dto.CreateOutDutyRequest {
	return dto.CreateOutDutyRequest{EmployeeID: employeeID, DutyType: "COURSE", Location: "Mhow", StartDate: "2024-03-10", ExpectedReturnDate: "2024-03-25"}
}

func TestOutDutyLifecycle(t *testing.T) {
	svc, repo, audit := newOutDutyFixture()
	ctx := context.Background()

	duty, err := svc.Create(ctx, adminClaims(), outDutyRequest("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, models.OutDutyOngoing, duty.Status)

	_, err = svc.Create(ctx, adminClaims(), outDutyRequest("emp-1"))
	assert.ErrorIs(t, err, appErrors.ErrStateConflict)

	returned, err := svc.Return(ctx, adminClaims(), duty.ID, dto.CloseOutDutyRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.OutDutyReturned, returned.Status)
	require.NotNil(t, returned.ActualReturnDate)
	assert.Equal(t, "2024-03-20", returned.ActualReturnDate.String())

	_, err = svc.Cancel(ctx, adminClaims(), duty.ID, dto.CloseOutDutyRequest{})
	assert.ErrorIs(t, err, appErrors.ErrStateConflict)
	_, err = svc.Return(ctx, adminClaims(), "missing", dto.CloseOutDutyRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.Equal(t, []string{models.AuditActionOutDutyCreate, models.AuditActionOutDutyReturn}, audit.actions())
	assert.Len(t, repo.rows, 1)
}

func TestOutDutyCreateValidation(t *testing.T) {
	svc, repo, _ := newOutDutyFixture()
	ctx := context.Background()

	req := outDutyRequest("emp-1")
	req.ExpectedReturnDate = "2024-03-01"
	_, err := svc.Create(ctx, adminClaims(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, inchargeClaims("unit-a"), outDutyRequest("emp-2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	repo.createErr = &pq.Error{Code: "23505"}
	_, err = svc.Create(ctx, adminClaims(), outDutyRequest("emp-1"))
	assert.ErrorIs(t, err, appErrors.ErrStateConflict)
}

func TestOutDutyCancelAndAvailability(t *testing.T) {
	svc, repo, _ := newOutDutyFixture()
	ctx := context.Background()
	duty, err := svc.Create(ctx, adminClaims(), outDutyRequest("emp-1"))
	require.NoError(t, err)

	availability := NewAvailabilityService(newMemLedger(), repo, newStubEmployees(models.Employee{ID: "emp-1", UnitID: strPtr("unit-a")}))
	during, err := availability.CheckOutDuty(ctx, adminClaims(), "emp-1", models.MustParseDate("2024-03-15"))
	require.NoError(t, err)
	assert.True(t, during.OnOutDuty)
	assert.False(t, during.Available)

	after, err := availability.CheckOutDuty(ctx, adminClaims(), "emp-1", models.MustParseDate("2024-03-26"))
	require.NoError(t, err)
	assert.True(t, after.Available)

	cancelled, err := svc.Cancel(ctx, adminClaims(), duty.ID, dto.CloseOutDutyRequest{Remarks: "entered twice"})
	require.NoError(t, err)
	assert.Equal(t, models.OutDutyCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ActualReturnDate)

	during, err = availability.CheckOutDuty(ctx, adminClaims(), "emp-1", models.MustParseDate("2024-03-15"))
	require.NoError(t, err)
	assert.True(t, during.Available)
}

func TestOutDutyAvailabilityScopedToUnit(t *testing.T) {
	svc, repo, _ := newOutDutyFixture()
	ctx := context.Background()
	_, err := svc.Create(ctx, adminClaims(), outDutyRequest("emp-1"))
	require.NoError(t, err)

	availability := NewAvailabilityService(newMemLedger(), repo, newStubEmployees(models.Employee{ID: "emp-1", UnitID: strPtr("unit-a")}))
	date := models.MustParseDate("2024-03-15")

	_, err = availability.CheckOutDuty(ctx, inchargeClaims("unit-b"), "emp-1", date)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = availability.CheckOutDuty(ctx, inchargeClaims(""), "emp-1", date)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = availability.CheckOutDuty(ctx, adminClaims(), "ghost", date)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	own, err := availability.CheckOutDuty(ctx, inchargeClaims("unit-a"), "emp-1", date)
	require.NoError(t, err)
	assert.True(t, own.OnOutDuty)
}

func TestOutDutyUnassignedInchargeCannotReachAnyUnit(t *testing.T) {
	svc, repo, _ := newOutDutyFixture()
	ctx := context.Background()
	duty, err := svc.Create(ctx, adminClaims(), outDutyRequest("emp-2"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, inchargeClaims(""), duty.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Return(ctx, inchargeClaims(""), duty.ID, dto.CloseOutDutyRequest{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Cancel(ctx, inchargeClaims(""), duty.ID, dto.CloseOutDutyRequest{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Return(ctx, inchargeClaims("unit-a"), duty.ID, dto.CloseOutDutyRequest{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	assert.Equal(t, models.OutDutyOngoing, repo.rows[duty.ID].Status)
}
