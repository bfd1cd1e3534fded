//go:build integration

package shift_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/pos"
	"github.com/georgemunganga/tillkeeper/internal/modules/shift"
	"github.com/georgemunganga/tillkeeper/internal/modules/store"
	"github.com/georgemunganga/tillkeeper/internal/modules/user"
	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

// setupPostgres starts a disposable PostgreSQL container with the schema
// migrated and returns a pool connected to it.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tillkeeper"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, dsn, database.PoolConfig{MaxOpenConns: 40})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator, err := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	return db
}

type env struct {
	db      *sql.DB
	shifts  shift.Service
	sales   pos.Service
	storeID uuid.UUID
	cashier uuid.UUID
	actor   auth.Actor
	manager auth.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db := setupPostgres(t)
	logger := zap.NewNop()

	stores := store.NewStorePostgresRepository(db)
	terminals := store.NewTerminalPostgresRepository(db)
	cashiers := store.NewCashierPostgresRepository(db)

	st := &store.Store{ID: uuid.New(), Name: "Cairo Road", Timezone: "Africa/Lusaka", Country: "ZM", IsActive: true}
	require.NoError(t, stores.CreateStore(ctx, st))
	c := &store.Cashier{ID: uuid.New(), StoreID: st.ID, Name: "Mwila", EmployeeCode: "C-01", IsActive: true}
	require.NoError(t, cashiers.CreateCashier(ctx, c))

	access := auth.NewRoleAccessControl()
	dir := store.NewDirectory(stores, terminals, cashiers)
	shifts := shift.NewService(shift.Dependencies{
		Shifts:     shift.NewPostgresRepository(db),
		UnitOfWork: shift.NewPostgresUnitOfWork(db, nil, shift.Timeouts{Tx: 10 * time.Second, Lock: 5 * time.Second, Statement: 8 * time.Second}, logger),
		Directory:  dir,
		Access:     access,
		Logger:     logger,
	})
	sales := pos.NewService(pos.Dependencies{
		Transactions: pos.NewPostgresRepository(db),
		Transactor:   pos.NewPostgresTransactor(db, 5*time.Second, 8*time.Second, logger),
		Shifts:       shifts,
		Access:       access,
		Logger:       logger,
	})
	return &env{
		db:      db,
		shifts:  shifts,
		sales:   sales,
		storeID: st.ID,
		cashier: c.ID,
		actor:   auth.Actor{UserID: uuid.New(), Role: user.RoleCashier, StoreID: &st.ID},
		manager: auth.Actor{UserID: uuid.New(), Role: user.RoleShiftManager, StoreID: &st.ID},
	}
}

func (e *env) terminal(t *testing.T) uuid.UUID {
	t.Helper()
	term := &store.Terminal{ID: uuid.New(), StoreID: e.storeID, Name: "Till", Status: store.TerminalActive}
	require.NoError(t, store.NewTerminalPostgresRepository(e.db).CreateTerminal(context.Background(), term))
	return term.ID
}

func (e *env) open(terminal uuid.UUID, opening string) (*shift.Shift, error) {
	return e.shifts.OpenShift(context.Background(), e.actor, shift.OpenShiftRequest{
		StoreID:     e.storeID.String(),
		TerminalID:  terminal.String(),
		CashierID:   e.cashier.String(),
		OpeningCash: decimal.RequireFromString(opening),
	})
}

func TestIntegrationConcurrentOpensOnOneTerminal(t *testing.T) {
	e := newEnv(t)
	terminal := e.terminal(t)

	const workers = 12
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.open(terminal, "50.00")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		assert.Equal(t, shift.CodeTerminalHasOpenShift, apperr.CodeOf(err), "unexpected error %v", err)
	}
	assert.Equal(t, 1, won)

	var unclosed int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM shifts WHERE terminal_id = $1 AND status <> 'CLOSED'`, terminal).Scan(&unclosed))
	assert.Equal(t, 1, unclosed)
}

func TestIntegrationNumberingAcrossTerminals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	terminals := []uuid.UUID{e.terminal(t), e.terminal(t), e.terminal(t)}
	var wg sync.WaitGroup
	for _, term := range terminals {
		wg.Add(1)
		go func(term uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 4; i++ {
				sh, err := e.open(term, "0")
				if !assert.NoError(t, err) {
					return
				}
				_, err = e.shifts.CloseShiftDirect(ctx, e.actor, sh.ID.String(), shift.CloseShiftRequest{ActualCash: decimal.Zero})
				assert.NoError(t, err)
			}
		}(term)
	}
	wg.Wait()

	for _, term := range terminals {
		rows, err := e.db.Query(`SELECT shift_number FROM shifts WHERE terminal_id = $1 ORDER BY shift_number`, term)
		require.NoError(t, err)
		var got []int
		for rows.Next() {
			var n int
			require.NoError(t, rows.Scan(&n))
			got = append(got, n)
		}
		rows.Close()
		assert.Equal(t, []int{1, 2, 3, 4}, got)
	}
}

func TestIntegrationReconciliationFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sh, err := e.open(e.terminal(t), "100.00")
	require.NoError(t, err)

	for _, sale := range []struct{ method, amount string }{{"CASH", "200.00"}, {"CASH", "50.00"}, {"CARD", "75.00"}} {
		_, err := e.sales.RecordSale(ctx, e.actor, pos.RecordSaleRequest{
			ShiftID:       sh.ID.String(),
			Amount:        decimal.RequireFromString(sale.amount),
			PaymentMethod: sale.method,
		})
		require.NoError(t, err)
	}

	got, err := e.shifts.GetShift(ctx, e.actor, sh.ID.String())
	require.NoError(t, err)
	assert.Equal(t, shift.StatusActive, got.Status, "first sale activates the shift")

	closing, err := e.shifts.InitiateClosing(ctx, e.actor, sh.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "350.00", closing.ExpectedCash.Decimal.StringFixed(2))

	_, err = e.sales.RecordSale(ctx, e.actor, pos.RecordSaleRequest{
		ShiftID: sh.ID.String(), Amount: decimal.NewFromInt(1), PaymentMethod: "CASH",
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "sales are refused while closing: %v", err)

	rec, err := e.shifts.ReconcileCash(ctx, e.actor, sh.ID.String(), shift.ReconcileRequest{
		ActualCash:     decimal.RequireFromString("340.00"),
		VarianceReason: ptr("drawer short"),
	})
	require.NoError(t, err)
	assert.Equal(t, shift.StatusVarianceReview, rec.Shift.Status)

	closed, err := e.shifts.ApproveVariance(ctx, e.manager, sh.ID.String(), shift.ApproveVarianceRequest{Reason: "recount confirmed"})
	require.NoError(t, err)
	assert.Equal(t, shift.StatusClosed, closed.Status)
	require.NotNil(t, closed.BusinessDayID)

	_, err = e.shifts.CloseShiftDirect(ctx, e.actor, sh.ID.String(), shift.CloseShiftRequest{ActualCash: decimal.Zero})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	var events int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM audit_logs WHERE entity_id = $1`, sh.ID).Scan(&events))
	assert.GreaterOrEqual(t, events, 5)
}

func ptr(s string) *string { return &s }
