package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/internal/repository"
)

// memLedger is an in-memory leave and balance store. WithinTx works on a copy
// of the state and swaps it in only when fn succeeds.
type memLedger struct {
	mu       sync.Mutex
	leaves   map[string]models.LeaveApplication
	balances map[string]models.LeaveBalance
	seq      int
	commits  int
	inserts  int
}

func newMemLedger() *memLedger {
	return &memLedger{leaves: map[string]models.LeaveApplication{}, balances: map[string]models.LeaveBalance{}}
}

func balanceKey(employeeID string, year int) string {
	return fmt.Sprintf("%s:%d", employeeID, year)
}

func (m *memLedger) seedBalance(b models.LeaveBalance) {
	if b.ID == "" {
		b.ID = "bal-" + balanceKey(b.EmployeeID, b.Year)
	}
	m.balances[balanceKey(b.EmployeeID, b.Year)] = b
}

func (m *memLedger) balance(employeeID string, year int) (models.LeaveBalance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey(employeeID, year)]
	return b, ok
}

func (m *memLedger) leave(id string) models.LeaveApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaves[id]
}

func cloneLeave(l models.LeaveApplication) models.LeaveApplication {
	l.PermissionDates = append([]models.Date(nil), l.PermissionDates...)
	l.Extensions = append([]models.LeaveExtension(nil), l.Extensions...)
	l.MedicalHistory = append([]models.MedicalHistoryEntry(nil), l.MedicalHistory...)
	if l.MedicalRest != nil {
		rest := *l.MedicalRest
		l.MedicalRest = &rest
	}
	return l
}

func (m *memLedger) WithinTx(ctx context.Context, fn func(tx repository.LeaveTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memLedgerTx{owner: m, leaves: map[string]models.LeaveApplication{}, balances: map[string]models.LeaveBalance{}}
	for k, v := range m.leaves {
		tx.leaves[k] = cloneLeave(v)
	}
	for k, v := range m.balances {
		tx.balances[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.leaves, m.balances = tx.leaves, tx.balances
	m.commits++
	return nil
}

func (m *memLedger) FindByID(ctx context.Context, id string) (*models.LeaveApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := cloneLeave(l)
	return &c, nil
}

func (m *memLedger) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveApplication, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LeaveApplication
	for _, l := range m.leaves {
		if filter.UnitID != "" && (l.UnitID == nil || *l.UnitID != filter.UnitID) {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, cloneLeave(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memLedger) ListCurrent(ctx context.Context, date models.Date, unitID string) ([]models.LeaveApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LeaveApplication
	for _, l := range m.leaves {
		if !l.CoversDate(date) {
			continue
		}
		if unitID != "" && (l.UnitID == nil || *l.UnitID != unitID) {
			continue
		}
		out = append(out, cloneLeave(l))
	}
	return out, nil
}

func (m *memLedger) FindActiveCovering(ctx context.Context, employeeID string, date models.Date) (*models.LeaveApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leaves {
		if l.EmployeeID == employeeID && l.CoversDate(date) {
			c := cloneLeave(l)
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memLedger) FindByEmployeeYear(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey(employeeID, year)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (m *memLedger) InsertIfAbsent(ctx context.Context, b *models.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey(b.EmployeeID, b.Year)
	if _, ok := m.balances[key]; ok {
		return nil
	}
	m.inserts++
	b.ID = "bal-" + key
	b.Version = 1
	m.balances[key] = *b
	return nil
}

type memLedgerTx struct {
	owner    *memLedger
	leaves   map[string]models.LeaveApplication
	balances map[string]models.LeaveBalance
}

func (t *memLedgerTx) LockLeave(ctx context.Context, id string) (*models.LeaveApplication, error) {
	l, ok := t.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := cloneLeave(l)
	return &c, nil
}

func (t *memLedgerTx) InsertLeave(ctx context.Context, leave *models.LeaveApplication) error {
	t.owner.seq++
	leave.ID = fmt.Sprintf("leave-%d", t.owner.seq)
	leave.Version = 1
	t.leaves[leave.ID] = cloneLeave(*leave)
	return nil
}

func (t *memLedgerTx) UpdateLeave(ctx context.Context, leave *models.LeaveApplication) error {
	leave.Version++
	t.leaves[leave.ID] = cloneLeave(*leave)
	return nil
}

func (t *memLedgerTx) LockBalance(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error) {
	b, ok := t.balances[balanceKey(employeeID, year)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (t *memLedgerTx) InsertBalance(ctx context.Context, b *models.LeaveBalance) error {
	key := balanceKey(b.EmployeeID, b.Year)
	if _, ok := t.balances[key]; ok {
		return nil
	}
	b.ID = "bal-" + key
	b.Version = 1
	t.balances[key] = *b
	return nil
}

func (t *memLedgerTx) UpdateBalance(ctx context.Context, b *models.LeaveBalance) error {
	b.Version++
	t.balances[balanceKey(b.EmployeeID, b.Year)] = *b
	return nil
}

type stubEmployees struct {
	byID map[string]models.Employee
}

func newStubEmployees(emps ...models.Employee) *stubEmployees {
	s := &stubEmployees{byID: map[string]models.Employee{}}
	for _, e := range emps {
		s.byID[e.ID] = e
	}
	return s
}

func (s *stubEmployees) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s *stubEmployees) FindByIDs(ctx context.Context, ids []string) ([]models.Employee, error) {
	var out []models.Employee
	for _, id := range ids {
		if e, ok := s.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubEmployees) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	var out []models.Employee
	for _, e := range s.byID {
		if filter.UnitID != "" && !e.InUnit(filter.UnitID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

type stubHolidays struct {
	holidays []models.Holiday
	created  []models.Holiday
}

func (s *stubHolidays) ListInRange(ctx context.Context, from, to models.Date, t models.HolidayType) ([]models.Holiday, error) {
	var out []models.Holiday
	for _, h := range s.holidays {
		if h.Type == t && h.Active && h.Date.Within(from, to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *stubHolidays) IsHoliday(ctx context.Context, date models.Date, t models.HolidayType) (bool, error) {
	found, _ := s.ListInRange(ctx, date, date, t)
	return len(found) > 0, nil
}

func (s *stubHolidays) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	var out []models.Holiday
	for _, h := range s.holidays {
		if filter.Year != 0 && h.Date.Year() != filter.Year {
			continue
		}
		if filter.Type != "" && h.Type != filter.Type {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *stubHolidays) Upsert(ctx context.Context, h *models.Holiday) error {
	h.ID = fmt.Sprintf("hol-%d", len(s.created)+1)
	h.Active = true
	s.created = append(s.created, *h)
	s.holidays = append(s.holidays, *h)
	return nil
}

func (s *stubHolidays) Deactivate(ctx context.Context, id string) error {
	for i := range s.holidays {
		if s.holidays[i].ID == id {
			s.holidays[i].Active = false
			return nil
		}
	}
	return sql.ErrNoRows
}

func holiday(date string, t models.HolidayType) models.Holiday {
	return models.Holiday{ID: "h-" + date, Date: models.MustParseDate(date), Name: "holiday", Type: t, Active: true}
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (r *recordingAudit) Create(ctx context.Context, log *models.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func (r *recordingAudit) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func strPtr(s string) *string { return &s }

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Username: "admin", Role: models.RoleOfficeAdmin}
}

func inchargeClaims(unit string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "inch-1", Username: "incharge", Role: models.RoleUnitIncharge, AssignedUnit: unit}
}
