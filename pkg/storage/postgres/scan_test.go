package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"osint/pkg/domain"
	"osint/pkg/storage"
)

func TestPgSQL_StoreScans(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()

	t.Run("store single scan", func(t *testing.T) {
		res, err := pgSQL.StoreScans(ctx, pendingScan(domain.TargetDomain, "example.com"))
		require.NoError(t, err)
		require.Len(t, res, 1)
		require.NotEqual(t, uuid.Nil, uuid.UUID(res[0].ID))
		require.Equal(t, domain.Target{Kind: domain.TargetDomain, Value: "example.com"}, res[0].Target)
		require.Equal(t, domain.ScanStatusPending, res[0].Status)
		require.Empty(t, res[0].Envelopes)
		require.False(t, res[0].CreatedAt.IsZero())
	})

	t.Run("store images scan", func(t *testing.T) {
		s := domain.Scan{
			Target: domain.Target{Kind: domain.TargetImages, Values: []string{"/tmp/a.jpg", "/tmp/b.png"}},
			Status: domain.ScanStatusPending,
		}
		res, err := pgSQL.StoreScans(ctx, s, pendingScan(domain.TargetPhone, "+14155552671"))
		require.NoError(t, err)
		require.Len(t, res, 2)
		require.Equal(t, []string{"/tmp/a.jpg", "/tmp/b.png"}, res[0].Target.Values)
	})

	t.Run("store empty scans", func(t *testing.T) {
		res, err := pgSQL.StoreScans(ctx)
		require.NoError(t, err)
		require.Empty(t, res)
	})
}

func TestPgSQL_UpdatePendingScan(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	ins, err := pgSQL.StoreScans(ctx,
		pendingScan(domain.TargetDomain, "example.com"),
		pendingScan(domain.TargetIP, "192.0.2.1"))
	require.NoError(t, err)

	started := time.Now().Add(-time.Second).UTC().Truncate(time.Microsecond)
	finished := time.Now().UTC().Truncate(time.Microsecond)
	envs := []domain.Envelope{
		domain.NewEnvelope("example.com", &domain.WhoisPayload{DomainName: "example.com", RegistrarAbuseEmail: "abuse@example.com"}),
		domain.FailedEnvelope(domain.ModuleDNS, "example.com", context.DeadlineExceeded),
		{Module: "future_module", Input: "example.com", Payload: domain.RawPayload{Tag: "future_module", Body: []byte(`{"a":1}`)}},
	}
	empty := ""

	t.Run("complete with envelopes", func(t *testing.T) {
		got, err := pgSQL.UpdatePendingScan(ctx, ins[0].ID, storage.ScanUpdates{
			Status:     domain.ScanStatusCompleted,
			Envelopes:  &envs,
			LastError:  &empty,
			StartedAt:  &started,
			FinishedAt: &finished,
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, domain.ScanStatusCompleted, got.Status)
		require.EqualValues(t, 1, got.Attempts)
		require.False(t, got.UpdatedAt.IsZero())
		require.True(t, started.Equal(got.StartedAt))
		require.True(t, finished.Equal(got.FinishedAt))
		require.Len(t, got.Envelopes, 3)
		require.Equal(t, "abuse@example.com", got.Envelopes[0].Payload.(*domain.WhoisPayload).RegistrarAbuseEmail)
		require.Equal(t, context.DeadlineExceeded.Error(), got.Envelopes[1].Error)
		require.Equal(t, domain.Module("future_module"), got.Envelopes[2].Module)
	})

	t.Run("completed scans are not pending anymore", func(t *testing.T) {
		got, err := pgSQL.UpdatePendingScan(ctx, ins[0].ID, storage.ScanUpdates{Status: domain.ScanStatusFailed})
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("failed only after max attempts", func(t *testing.T) {
		msg := "database went away"
		for attempt := 1; attempt <= 3; attempt++ {
			got, err := pgSQL.UpdatePendingScan(ctx, ins[1].ID, storage.ScanUpdates{
				Status:      domain.ScanStatusFailed,
				LastError:   &msg,
				MaxAttempts: 3,
			})
			require.NoError(t, err)
			require.NotNil(t, got)
			require.EqualValues(t, attempt, got.Attempts)
			require.Equal(t, msg, got.LastError)
			if attempt < 3 {
				require.Equal(t, domain.ScanStatusPending, got.Status)
			} else {
				require.Equal(t, domain.ScanStatusFailed, got.Status)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		got, err := pgSQL.UpdatePendingScan(ctx, domain.ScanID(uuid.New()), storage.ScanUpdates{Status: domain.ScanStatusCompleted})
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestPgSQL_ScansPagination(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	var ids []domain.ScanID
	for _, v := range []string{"a.example", "b.example", "c.example"} {
		res, err := pgSQL.StoreScans(ctx, pendingScan(domain.TargetDomain, v))
		require.NoError(t, err)
		ids = append(ids, res[0].ID)
		// created_at must differ for the cursor
		time.Sleep(5 * time.Millisecond)
	}
	_, err := pgSQL.UpdatePendingScan(ctx, ids[0], storage.ScanUpdates{Status: domain.ScanStatusCompleted})
	require.NoError(t, err)

	page, err := pgSQL.Scans(ctx, "", time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, page.Scans, 2)
	require.Equal(t, ids[2], page.Scans[0].ID)
	require.Equal(t, ids[1], page.Scans[1].ID)
	require.NotNil(t, page.NextCursor)

	page, err = pgSQL.Scans(ctx, "", *page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Scans, 1)
	require.Equal(t, ids[0], page.Scans[0].ID)
	require.Nil(t, page.NextCursor)

	page, err = pgSQL.Scans(ctx, domain.ScanStatusCompleted, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Scans, 1)
	require.Equal(t, ids[0], page.Scans[0].ID)
}

func TestPgSQL_DeleteAndPurge(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	ins, err := pgSQL.StoreScans(ctx,
		pendingScan(domain.TargetDomain, "old.example"),
		pendingScan(domain.TargetDomain, "deleted.example"))
	require.NoError(t, err)

	deleted, err := pgSQL.DeleteScan(ctx, ins[1].ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)

	again, err := pgSQL.DeleteScan(ctx, ins[1].ID)
	require.NoError(t, err)
	require.Nil(t, again)

	got, err := pgSQL.ScanByID(ctx, ins[1].ID)
	require.NoError(t, err)
	require.Nil(t, got)

	purged, err := pgSQL.PurgeScans(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, purged)

	purged, err = pgSQL.PurgeScans(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.ScanID{ins[0].ID, ins[1].ID}, purged)

	got, err = pgSQL.ScanByID(ctx, ins[0].ID)
	require.NoError(t, err)
	require.Nil(t, got)
}
