package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"osint/pkg/domain"
)

// PgScan is the row shape of the scans table. Target and envelopes are
// stored as JSONB.
type PgScan struct {
	ID uuid.UUID `db:"id" goqu:"skipinsert"`

	TargetType string          `db:"target_type"`
	Target     json.RawMessage `db:"target"`
	Status     string          `db:"status"`
	Envelopes  json.RawMessage `db:"envelopes" goqu:"skipinsert"`

	Attempts  uint           `db:"attempts"   goqu:"skipinsert"`
	LastError sql.NullString `db:"last_error" goqu:"skipinsert"`

	StartedAt  sql.NullTime `db:"started_at"  goqu:"skipinsert"`
	FinishedAt sql.NullTime `db:"finished_at" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
	DeletedAt sql.NullTime `db:"deleted_at" goqu:"skipinsert"`
}

// ToDomain decodes the row. Envelopes of modules this build does not know
// are kept raw by the envelope decoder.
func (p *PgScan) ToDomain() (*domain.Scan, error) {
	var target domain.Target
	if err := json.Unmarshal(p.Target, &target); err != nil {
		return nil, fmt.Errorf("could not unmarshal scan target: %w", err)
	}

	var envelopes []domain.Envelope
	if len(p.Envelopes) > 0 {
		if err := json.Unmarshal(p.Envelopes, &envelopes); err != nil {
			return nil, fmt.Errorf("could not unmarshal scan envelopes: %w", err)
		}
	}

	return &domain.Scan{
		ID:         domain.ScanID(p.ID),
		Target:     target,
		Status:     domain.ScanStatus(p.Status),
		Envelopes:  envelopes,
		Attempts:   p.Attempts,
		LastError:  p.LastError.String,
		StartedAt:  p.StartedAt.Time,
		FinishedAt: p.FinishedAt.Time,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt.Time,
	}, nil
}

// FromDomain fills the insertable columns from a domain scan.
func (p *PgScan) FromDomain(scan domain.Scan) error {
	target, err := json.Marshal(scan.Target)
	if err != nil {
		return fmt.Errorf("could not marshal scan target: %w", err)
	}

	*p = PgScan{
		ID:         uuid.UUID(scan.ID),
		TargetType: string(scan.Target.Kind),
		Target:     target,
		Status:     string(scan.Status),
	}

	return nil
}

func domainScansToPg(scans []domain.Scan) ([]PgScan, error) {
	out := make([]PgScan, len(scans))
	for i := range out {
		if err := out[i].FromDomain(scans[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func pgScansToDomain(scans []PgScan) ([]domain.Scan, error) {
	out := make([]domain.Scan, 0, len(scans))
	for _, scan := range scans {
		d, err := scan.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}
