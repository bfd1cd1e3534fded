package shift

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/businessday"
	"github.com/georgemunganga/tillkeeper/internal/modules/store"
	"github.com/georgemunganga/tillkeeper/internal/modules/user"
)

// memStore is the committed state shared by every memory transaction.
type memStore struct {
	mu        sync.Mutex
	shifts    map[uuid.UUID]*Shift
	cash      map[uuid.UUID]decimal.Decimal
	tenders   map[uuid.UUID][]TenderTotal
	summaries map[uuid.UUID]*Summary
	events    []*audit.Event
	auditErr  error
	days      *memDays

	lockMu   sync.Mutex
	locks    map[int64]*sync.Mutex
	rowLocks map[uuid.UUID]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		shifts:    map[uuid.UUID]*Shift{},
		cash:      map[uuid.UUID]decimal.Decimal{},
		tenders:   map[uuid.UUID][]TenderTotal{},
		summaries: map[uuid.UUID]*Summary{},
		days:      &memDays{days: map[uuid.UUID]*businessday.BusinessDay{}},
		locks:     map[int64]*sync.Mutex{},
		rowLocks:  map[uuid.UUID]*sync.Mutex{},
	}
}

func (m *memStore) keyLock(key int64) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	if m.locks[key] == nil {
		m.locks[key] = &sync.Mutex{}
	}
	return m.locks[key]
}

func (m *memStore) rowLock(id uuid.UUID) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	if m.rowLocks[id] == nil {
		m.rowLocks[id] = &sync.Mutex{}
	}
	return m.rowLocks[id]
}

func (m *memStore) put(s *Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shifts[s.ID] = &cp
}

func (m *memStore) shift(id uuid.UUID) *Shift {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.shifts[id]
	return &cp
}

func (m *memStore) actions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Action, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Action)
	}
	return out
}

func (m *memStore) lastEvent() *audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

// memRepo serves committed state, overlaid with tx's pending writes when
// bound to a transaction.
type memRepo struct {
	store *memStore
	tx    *memTx
}

func (r *memRepo) view() map[uuid.UUID]*Shift {
	out := make(map[uuid.UUID]*Shift, len(r.store.shifts))
	for id, s := range r.store.shifts {
		out[id] = s
	}
	if r.tx != nil {
		for id, s := range r.tx.pending {
			out[id] = s
		}
	}
	return out
}

func (r *memRepo) write(s *Shift) {
	cp := *s
	if r.tx != nil {
		r.tx.pending[s.ID] = &cp
		return
	}
	r.store.shifts[s.ID] = &cp
}

func (r *memRepo) Insert(_ context.Context, s *Shift) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, other := range r.view() {
		if other.TerminalID != s.TerminalID {
			continue
		}
		if IsUnclosed(other.Status) && IsUnclosed(s.Status) {
			return ErrUnclosedShiftExists
		}
		if other.LocalDate.Equal(s.LocalDate) && other.ShiftNumber == s.ShiftNumber {
			return ErrShiftNumberTaken
		}
	}
	s.CreatedAt, s.UpdatedAt = s.OpenedAt, s.OpenedAt
	r.write(s)
	return nil
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (*Shift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.view()[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Shift, error) {
	if r.tx != nil && !r.tx.rows[id] {
		mu := r.store.rowLock(id)
		mu.Lock()
		r.tx.rows[id] = true
		r.tx.unlocks = append(r.tx.unlocks, mu.Unlock)
	}
	return r.Get(ctx, id)
}

func (r *memRepo) Update(_ context.Context, s *Shift) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.view()[s.ID]
	if !ok || cur.Status == StatusClosed {
		return ErrShiftLocked
	}
	r.write(s)
	return nil
}

func (r *memRepo) FindUnclosedByTerminal(_ context.Context, terminalID uuid.UUID) (*Shift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var found *Shift
	for _, s := range r.view() {
		if s.TerminalID == terminalID && IsUnclosed(s.Status) && (found == nil || s.OpenedAt.After(found.OpenedAt)) {
			found = s
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *memRepo) CountOpenedBetween(_ context.Context, terminalID uuid.UUID, start, end time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, s := range r.view() {
		if s.TerminalID == terminalID && !s.OpenedAt.Before(start) && s.OpenedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) sorted(keep func(*Shift) bool) []*Shift {
	out := []*Shift{}
	for _, s := range r.view() {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

func (r *memRepo) ListByStore(_ context.Context, storeID uuid.UUID, status Status, limit int) ([]*Shift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.sorted(func(s *Shift) bool {
		return s.StoreID == storeID && (status == "" || s.Status == status)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListMissingBusinessDay(_ context.Context, storeID uuid.UUID) ([]*Shift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.sorted(func(s *Shift) bool { return s.StoreID == storeID && s.BusinessDayID == nil }), nil
}

func (r *memRepo) SetBusinessDay(_ context.Context, shiftID, dayID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.view()[shiftID]
	if !ok || s.BusinessDayID != nil {
		return ErrNotFound
	}
	cp := *s
	cp.BusinessDayID = &dayID
	r.write(&cp)
	return nil
}

func (r *memRepo) SumCompletedCash(_ context.Context, shiftID uuid.UUID) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.cash[shiftID], nil
}

func (r *memRepo) TenderTotals(_ context.Context, shiftID uuid.UUID) ([]TenderTotal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]TenderTotal{}, r.store.tenders[shiftID]...), nil
}

func (r *memRepo) SaveSummary(_ context.Context, sum *Summary) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *sum
	r.store.summaries[sum.ShiftID] = &cp
	return nil
}

func (r *memRepo) GetSummary(_ context.Context, shiftID uuid.UUID) (*Summary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum, ok := r.store.summaries[shiftID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sum
	return &cp, nil
}

// memTx buffers shift writes and audit events until commit. Locks it takes
// are held until the unit of work ends.
type memTx struct {
	store   *memStore
	pending map[uuid.UUID]*Shift
	events  []*audit.Event
	rows    map[uuid.UUID]bool
	unlocks []func()
}

func (t *memTx) Shifts() Repository                   { return &memRepo{store: t.store, tx: t} }
func (t *memTx) BusinessDays() businessday.Repository { return t.store.days }
func (t *memTx) Audit() audit.Recorder                { return memAudit{tx: t} }

func (t *memTx) LockTerminal(_ context.Context, key int64) error {
	mu := t.store.keyLock(key)
	mu.Lock()
	t.unlocks = append(t.unlocks, mu.Unlock)
	return nil
}

func (t *memTx) Savepoint(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	n := len(t.events)
	if err := fn(ctx); err != nil {
		t.events = t.events[:n]
		return err
	}
	return nil
}

type memAudit struct{ tx *memTx }

func (a memAudit) Record(_ context.Context, e *audit.Event) error {
	a.tx.store.mu.Lock()
	err := a.tx.store.auditErr
	a.tx.store.mu.Unlock()
	if err != nil {
		return err
	}
	a.tx.events = append(a.tx.events, e)
	return nil
}

type memUnitOfWork struct{ store *memStore }

func (u memUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	t := &memTx{store: u.store, pending: map[uuid.UUID]*Shift{}, rows: map[uuid.UUID]bool{}}
	defer func() {
		for i := len(t.unlocks) - 1; i >= 0; i-- {
			t.unlocks[i]()
		}
	}()
	if err := fn(ctx, t); err != nil {
		return err
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for id, s := range t.pending {
		u.store.shifts[id] = s
	}
	u.store.events = append(u.store.events, t.events...)
	return nil
}

// memDays is a non-transactional business day repository.
type memDays struct {
	mu   sync.Mutex
	days map[uuid.UUID]*businessday.BusinessDay
	err  error
}

func (d *memDays) FindLatestOpen(_ context.Context, storeID uuid.UUID) (*businessday.BusinessDay, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	var latest *businessday.BusinessDay
	for _, day := range d.days {
		if day.StoreID == storeID && day.Status == businessday.StatusOpen && (latest == nil || day.BusinessDate.After(latest.BusinessDate)) {
			latest = day
		}
	}
	if latest == nil {
		return nil, businessday.ErrNotFound
	}
	return latest, nil
}

func (d *memDays) GetOrCreate(_ context.Context, storeID uuid.UUID, date time.Time) (*businessday.BusinessDay, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, day := range d.days {
		if day.StoreID == storeID && day.BusinessDate.Equal(date) {
			return day, nil
		}
	}
	day := &businessday.BusinessDay{ID: uuid.New(), StoreID: storeID, BusinessDate: date, Status: businessday.StatusOpen, OpenedAt: time.Now()}
	d.days[day.ID] = day
	return day, nil
}

func (d *memDays) EnsureDaySummary(context.Context, *businessday.BusinessDay) error { return nil }

func (d *memDays) Get(_ context.Context, id uuid.UUID) (*businessday.BusinessDay, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if day, ok := d.days[id]; ok {
		return day, nil
	}
	return nil, businessday.ErrNotFound
}

type fakeDirectory struct {
	stores    map[uuid.UUID]*store.Store
	terminals map[uuid.UUID]*store.Terminal
	cashiers  map[uuid.UUID]*store.Cashier
}

func (d *fakeDirectory) ValidateStore(_ context.Context, id uuid.UUID) (*store.Store, error) {
	st, ok := d.stores[id]
	if !ok {
		return nil, apperr.NotFound("STORE_NOT_FOUND", "store %s not found", id)
	}
	return st, nil
}

func (d *fakeDirectory) ValidateTerminal(_ context.Context, storeID, id uuid.UUID) (*store.Terminal, error) {
	t, ok := d.terminals[id]
	if !ok {
		return nil, apperr.NotFound("TERMINAL_NOT_FOUND", "terminal %s not found", id)
	}
	if t.StoreID != storeID {
		return nil, apperr.Validation("TERMINAL_STORE_MISMATCH", "terminal %s is elsewhere", id)
	}
	if t.Status != store.TerminalActive {
		return nil, apperr.Validation("TERMINAL_RETIRED", "terminal %s is retired", id)
	}
	return t, nil
}

func (d *fakeDirectory) ValidateCashier(_ context.Context, storeID, id uuid.UUID) (*store.Cashier, error) {
	c, ok := d.cashiers[id]
	if !ok {
		return nil, apperr.NotFound("CASHIER_NOT_FOUND", "cashier %s not found", id)
	}
	if c.StoreID != storeID {
		return nil, apperr.Validation("CASHIER_STORE_MISMATCH", "cashier %s is elsewhere", id)
	}
	if !c.IsActive {
		return nil, apperr.Validation("CASHIER_INACTIVE", "cashier %s is inactive", id)
	}
	return c, nil
}

// memCache round-trips values through JSON like the Redis cache does.
type memCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (c *memCache) Load(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Store(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	mem       *memStore
	cache     *memCache
	clock     *fixedClock
	dir       *fakeDirectory
	svc       Service
	storeID   uuid.UUID
	terminal  uuid.UUID
	cashierID uuid.UUID
	cashier   auth.Actor
	manager   auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storeID, terminalID, cashierID := uuid.New(), uuid.New(), uuid.New()
	f := &fixture{
		mem:   newMemStore(),
		cache: newMemCache(),
		clock: &fixedClock{now: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)},
		dir: &fakeDirectory{
			stores: map[uuid.UUID]*store.Store{
				storeID: {ID: storeID, Name: "Cairo Road", Timezone: "Africa/Lusaka", IsActive: true},
			},
			terminals: map[uuid.UUID]*store.Terminal{
				terminalID: {ID: terminalID, StoreID: storeID, Name: "Till 1", Status: store.TerminalActive},
			},
			cashiers: map[uuid.UUID]*store.Cashier{
				cashierID: {ID: cashierID, StoreID: storeID, Name: "Mwila", EmployeeCode: "C-01", IsActive: true},
			},
		},
		storeID:   storeID,
		terminal:  terminalID,
		cashierID: cashierID,
		cashier:   auth.Actor{UserID: uuid.New(), Role: user.RoleCashier, StoreID: &storeID},
		manager:   auth.Actor{UserID: uuid.New(), Role: user.RoleShiftManager, StoreID: &storeID},
	}
	f.svc = NewService(Dependencies{
		Shifts:     &memRepo{store: f.mem},
		UnitOfWork: memUnitOfWork{store: f.mem},
		Directory:  f.dir,
		Access:     auth.NewRoleAccessControl(),
		Associator: businessday.NewAssociator(zap.NewNop()),
		Cache:      f.cache,
		Clock:      f.clock,
		Logger:     zap.NewNop(),
	})
	return f
}

func (f *fixture) openRequest(opening string) OpenShiftRequest {
	return OpenShiftRequest{
		StoreID:     f.storeID.String(),
		TerminalID:  f.terminal.String(),
		CashierID:   f.cashierID.String(),
		OpeningCash: decimal.RequireFromString(opening),
	}
}

func (f *fixture) open(t *testing.T, opening string) *Shift {
	t.Helper()
	sh, err := f.svc.OpenShift(context.Background(), f.cashier, f.openRequest(opening))
	require.NoError(t, err)
	return sh
}

// seed stores a shift directly in the given status.
func (f *fixture) seed(status Status, opening string) *Shift {
	sh := &Shift{
		ID:          uuid.New(),
		StoreID:     f.storeID,
		TerminalID:  uuid.New(),
		CashierID:   f.cashierID,
		OpenedBy:    f.cashier.UserID,
		Status:      status,
		ShiftNumber: 1,
		LocalDate:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		OpeningCash: decimal.RequireFromString(opening),
		OpenedAt:    f.clock.Now(),
	}
	f.mem.put(sh)
	return sh
}

func (f *fixture) setCash(id uuid.UUID, amount string) {
	f.mem.mu.Lock()
	defer f.mem.mu.Unlock()
	f.mem.cash[id] = decimal.RequireFromString(amount)
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperr.CodeOf(err)
}

var errBoom = errors.New("boom")
