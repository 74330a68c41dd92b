package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	"github.com/nexuscore/nexuscore/internal/idempotency/domain"
	"github.com/nexuscore/nexuscore/internal/idempotency/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Record{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		Cfg:   config.Config{IdempotencyTTL: 24 * time.Hour},
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	})
	return svc, fakeClock
}

func TestBeginCompleteReplay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	body := []byte(`{"customer_id":"cust-1"}`)

	replay, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)
	assert.Nil(t, replay)

	require.NoError(t, svc.Complete(ctx, "key-1", http.StatusCreated, []byte(`{"id":"42"}`)))

	replay, err = svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.JSONEq(t, `{"id":"42"}`, string(replay.Body))
}

func TestBeginRejectsPayloadMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", []byte(`{"a":1}`))
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, "key-1", http.StatusCreated, nil))

	_, err = svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", []byte(`{"a":2}`))
	assert.ErrorIs(t, err, domain.ErrKeyPayloadMismatch)

	// Same body on a different route is also a reuse, not a retry.
	_, err = svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices/:id/credit-note", []byte(`{"a":1}`))
	assert.ErrorIs(t, err, domain.ErrKeyPayloadMismatch)
}

func TestBeginRejectsInFlightKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	body := []byte(`{}`)

	_, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)

	_, err = svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	assert.ErrorIs(t, err, domain.ErrKeyInProgress)
}

func TestFailReleasesKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	body := []byte(`{}`)

	_, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)
	require.NoError(t, svc.Fail(ctx, "key-1"))

	replay, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestExpiredKeyRunsAgain(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()
	body := []byte(`{}`)

	_, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, "key-1", http.StatusCreated, nil))

	fakeClock.Advance(25 * time.Hour)

	replay, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", body)
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestDeleteExpired(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "key-1", http.MethodPost, "/api/invoices", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, "key-1", http.StatusCreated, nil))
	_, err = svc.Begin(ctx, "key-2", http.MethodPost, "/api/invoices", []byte(`{"b":1}`))
	require.NoError(t, err)

	removed, err := svc.DeleteExpired(ctx, fakeClock.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)

	fakeClock.Advance(25 * time.Hour)
	removed, err = svc.DeleteExpired(ctx, fakeClock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestBlankKeyPassesThrough(t *testing.T) {
	svc, _ := newTestService(t)

	replay, err := svc.Begin(context.Background(), "   ", http.MethodPost, "/api/invoices", []byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, replay)
}
