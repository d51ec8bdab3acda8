package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"osint/pkg/serrors"
)

// ScanID uniquely identifies a collection scan.
// It wraps uuid.UUID to provide type safety at the domain layer.
type ScanID uuid.UUID

// String returns the canonical textual form of the ID.
func (id ScanID) String() string { return uuid.UUID(id).String() }

// MarshalText implements encoding.TextMarshaler.
func (id ScanID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ScanID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b) //nolint: wrapcheck
}

// ParseScanID parses the textual form of a scan ID.
func ParseScanID(s string) (ScanID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ScanID{}, err //nolint: wrapcheck
	}

	return ScanID(id), nil
}

// TargetKind is the type of value a scan investigates.
type TargetKind string

const (
	TargetDomain   TargetKind = "domain"
	TargetUsername TargetKind = "username"
	TargetPhone    TargetKind = "phone"
	TargetIP       TargetKind = "ip"
	TargetImages   TargetKind = "images"
)

// Valid reports whether the kind is one of the supported target kinds.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetDomain, TargetUsername, TargetPhone, TargetIP, TargetImages:
		return true
	default:
		return false
	}
}

// Target is the query a scan runs against. Images targets use Values (file
// paths); every other kind uses Value.
type Target struct {
	Kind   TargetKind `json:"type"`
	Value  string     `json:"value,omitempty"`
	Values []string   `json:"values,omitempty"`
}

// Descriptor returns the target in the {kind: value} shape of run summaries.
func (t Target) Descriptor() map[string]any {
	if t.Kind == TargetImages {
		return map[string]any{string(t.Kind): t.Values}
	}

	return map[string]any{string(t.Kind): t.Value}
}

// Normalize returns a copy of the target with surrounding whitespace removed
// and empty image paths dropped.
func (t Target) Normalize() Target {
	out := Target{Kind: TargetKind(strings.ToLower(strings.TrimSpace(string(t.Kind))))}
	if out.Kind == TargetImages {
		for _, v := range t.Values {
			if v = strings.TrimSpace(v); v != "" {
				out.Values = append(out.Values, v)
			}
		}

		return out
	}
	out.Value = strings.TrimSpace(t.Value)

	return out
}

// Validate checks that the target names a supported kind and carries a value.
// It expects a normalized target.
func (t Target) Validate() error {
	switch {
	case !t.Kind.Valid():
		return serrors.With(serrors.ErrBadRequest, "unsupported target type %q", t.Kind)
	case t.Kind == TargetImages && len(t.Values) == 0:
		return serrors.With(serrors.ErrBadRequest, "images target needs at least one file")
	case t.Kind != TargetImages && t.Value == "":
		return serrors.With(serrors.ErrBadRequest, "%s target needs a value", t.Kind)
	}

	return nil
}

// ScanStatus represents the lifecycle state of a scan.
// It can be pending, completed, or failed.
type ScanStatus string

const (
	// ScanStatusPending indicates the scan has been enqueued but sources have not finished yet.
	ScanStatusPending ScanStatus = "PENDING"
	// ScanStatusCompleted indicates every source finished (successfully or not) and envelopes are available.
	ScanStatusCompleted ScanStatus = "COMPLETED"
	// ScanStatusFailed indicates the collection itself could not run; see LastError and Attempts for details.
	ScanStatusFailed ScanStatus = "FAILED"
)

// Scan is a single collection run against a target and its collected envelopes.
type Scan struct {
	// ID is the unique identifier of the scan.
	ID ScanID `json:"id"`
	// Target is what the scan investigates.
	Target Target `json:"target"`
	// Status is the current lifecycle state of the scan.
	Status ScanStatus `json:"status"`
	// Envelopes holds one envelope per invoked source module, available once completed.
	Envelopes []Envelope `json:"results"`

	// Attempts is the number of times the system has tried to collect this scan.
	Attempts uint `json:"attempts"`
	// LastError stores the most recent collection error, if any.
	LastError string `json:"-"`

	// StartedAt is when source collection started.
	StartedAt time.Time `json:"started,omitzero"`
	// FinishedAt is when every source finished.
	FinishedAt time.Time `json:"finished,omitzero"`

	// CreatedAt is the time when the scan was requested.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the time when the scan was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// RunSummary is the document produced by a collection run: the target, every
// envelope and the run's start and finish times.
type RunSummary struct {
	Target   map[string]any `json:"target"`
	Results  []Envelope     `json:"results"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
}
