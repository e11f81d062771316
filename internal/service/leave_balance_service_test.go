package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

func newBalanceFixture() (*LeaveBalanceService, *memLedger, *recordingAudit) {
	ledger := newMemLedger()
	audit := &recordingAudit{}
	employees := newStubEmployees(
		models.Employee{ID: "emp-1", Name: "Arjun", UnitID: strPtr("unit-a")},
	)
	svc := NewLeaveBalanceService(ledger, ledger, employees, models.DefaultBalanceDefaults, NewAuditService(audit, zap.NewNop()), nil, zap.NewNop())
	return svc, ledger, audit
}

func TestBalanceGetOrCreateIsIdempotent(t *testing.T) {
	svc, ledger, _ := newBalanceFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*models.LeaveBalance, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := svc.GetOrCreate(ctx, "emp-1", 2024)
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ledger.inserts)
	for _, b := range results {
		require.NotNil(t, b)
		assert.Equal(t, results[0].ID, b.ID)
		assert.Equal(t, 30, b.CasualLeave.Remaining)
	}

	again, err := svc.GetOrCreate(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, results[0].ID, again.ID)
	assert.Equal(t, 1, ledger.inserts)
}

func TestBalanceGetScopesAndValidates(t *testing.T) {
	svc, _, _ := newBalanceFixture()
	ctx := context.Background()

	_, err := svc.Get(ctx, adminClaims(), "emp-1", 1999)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Get(ctx, inchargeClaims("unit-b"), "emp-1", 2024)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(ctx, adminClaims(), "ghost", 2024)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	b, err := svc.Get(ctx, inchargeClaims("unit-a"), "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, b.Year)
}

func TestBalanceUpdateAllotmentKeepsUsedDays(t *testing.T) {
	svc, ledger, audit := newBalanceFixture()
	ctx := context.Background()
	seed := models.NewLeaveBalance("emp-1", 2024, models.DefaultBalanceDefaults)
	require.NoError(t, seed.Debit(models.CategoryCasual, 4))
	ledger.seedBalance(*seed)

	casual, carried, earned := 10, 5, 15
	updated, err := svc.UpdateAllotment(ctx, adminClaims(), "emp-1", dto.UpdateBalanceRequest{Year: 2024, CasualTotal: &casual, EarnedCarriedForward: &carried, EarnedEarned: &earned})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.CasualLeave.Total)
	assert.Equal(t, 4, updated.CasualLeave.Used)
	assert.Equal(t, 6, updated.CasualLeave.Remaining)
	assert.Equal(t, 20, updated.EarnedLeave.Remaining)
	assert.True(t, updated.Conserved())
	assert.Equal(t, []string{models.AuditActionBalanceAllot}, audit.actions())

	tooLow := 2
	_, err = svc.UpdateAllotment(ctx, adminClaims(), "emp-1", dto.UpdateBalanceRequest{Year: 2024, CasualTotal: &tooLow})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientBalance)

	stored, _ := ledger.balance("emp-1", 2024)
	assert.Equal(t, 10, stored.CasualLeave.Total)
}

type gatedBalanceStore struct {
	*memLedger
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBalanceStore) FindByEmployeeYear(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.memLedger.FindByEmployeeYear(ctx, employeeID, year)
}

func TestBalanceGetOrCreateSurvivesFirstCallerCancel(t *testing.T) {
	ledger := newMemLedger()
	store := &gatedBalanceStore{memLedger: ledger, entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewLeaveBalanceService(store, ledger, newStubEmployees(), models.DefaultBalanceDefaults, nil, nil, zap.NewNop())

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetOrCreate(first, "emp-1", 2024)
		firstErr <- err
	}()
	<-store.entered

	type outcome struct {
		balance *models.LeaveBalance
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		b, err := svc.GetOrCreate(context.Background(), "emp-1", 2024)
		second <- outcome{b, err}
	}()

	cancel()
	assert.Error(t, <-firstErr)
	close(store.release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 2024, got.balance.Year)
	assert.Equal(t, 1, ledger.inserts)
}
