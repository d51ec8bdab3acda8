package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"osint/pkg/domain"
	"osint/pkg/storage"
)

const (
	scansTable = "scans"
)

func (p *PgSQL) StoreScans(ctx context.Context, scans ...domain.Scan) ([]domain.Scan, error) {
	if len(scans) == 0 {
		return nil, nil
	}

	pgScans, err := domainScansToPg(scans)
	if err != nil {
		return nil, err
	}

	var result []PgScan
	if err := p.Builder.Insert(scansTable).
		Rows(pgScans).
		Returning(&PgScan{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store scans into pg: %w", err)
	}

	return pgScansToDomain(result)
}

// UpdatePendingScan applies updates to a pending scan. Attempts is
// incremented by 1 and updated_at is set.
func (p *PgSQL) UpdatePendingScan(ctx context.Context,
	id domain.ScanID,
	updates storage.ScanUpdates) (*domain.Scan, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		"attempts":   goqu.L("attempts + 1"),
	}
	switch {
	case updates.Status == domain.ScanStatusFailed && updates.MaxAttempts > 0:
		// only give up once the retry budget is spent
		rec["status"] = goqu.L("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
			updates.MaxAttempts, string(domain.ScanStatusFailed))
	case updates.Status != "":
		rec["status"] = string(updates.Status)
	}
	if updates.Envelopes != nil {
		envs := *updates.Envelopes
		if envs == nil {
			envs = []domain.Envelope{}
		}
		b, err := json.Marshal(envs)
		if err != nil {
			return nil, fmt.Errorf("could not marshal envelopes: %w", err)
		}

		rec["envelopes"] = b
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			// set to NULL when empty string provided
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}
	if updates.StartedAt != nil {
		rec["started_at"] = updates.StartedAt.UTC()
	}
	if updates.FinishedAt != nil {
		rec["finished_at"] = updates.FinishedAt.UTC()
	}

	var row PgScan
	found, err := p.Builder.Update(scansTable).
		Set(rec).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("status").Eq(string(domain.ScanStatusPending)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgScan{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update pending scan in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// DeleteScan performs a soft delete by setting deleted_at timestamp
// for a given scan id, returning the deleted record.
func (p *PgSQL) DeleteScan(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	var row PgScan
	found, err := p.Builder.Update(scansTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgScan{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete scan in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// Scans returns scans filtered by optional status and cursor and limited by
// limit. Results are ordered by created_at DESC, id DESC.
func (p *PgSQL) Scans(ctx context.Context,
	status domain.ScanStatus,
	cursor time.Time,
	limit uint) (storage.ScanPage, error) {
	w := []goqu.Expression{
		goqu.I("deleted_at").IsNull(),
	}
	if status != "" {
		w = append(w, goqu.I("status").Eq(string(status)))
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	ds := p.Builder.From(scansTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgScan
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.ScanPage{}, fmt.Errorf("could not fetch scans from pg: %w", err)
	}

	// if we fetched more than the limit, there is a next page
	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	domainRows, err := pgScansToDomain(rows)
	if err != nil {
		return storage.ScanPage{}, err
	}

	return storage.ScanPage{
		Scans:      domainRows,
		NextCursor: nextCursor,
	}, nil
}

// ScanByID returns a scan by its ID, excluding soft-deleted rows.
func (p *PgSQL) ScanByID(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	var row PgScan
	found, err := p.Builder.From(scansTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("deleted_at").IsNull(),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch scan by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// PurgeScans hard deletes scans created or soft-deleted before the given time.
func (p *PgSQL) PurgeScans(ctx context.Context, before time.Time) ([]domain.ScanID, error) {
	var ids []uuid.UUID
	err := p.Builder.Delete(scansTable).
		Where(goqu.Or(
			goqu.I("created_at").Lt(before),
			goqu.I("deleted_at").Lt(before),
		)).
		Returning("id").Executor().ScanValsContext(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("could not purge scans in pg: %w", err)
	}

	out := make([]domain.ScanID, len(ids))
	for i, id := range ids {
		out[i] = domain.ScanID(id)
	}

	return out, nil
}
