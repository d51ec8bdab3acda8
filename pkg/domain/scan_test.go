package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/pkg/domain"
	"osint/pkg/serrors"
)

func TestTarget_NormalizeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      domain.Target
		want    domain.Target
		wantErr bool
	}{
		{
			name: "domain trimmed",
			in:   domain.Target{Kind: " Domain ", Value: "  example.com\n"},
			want: domain.Target{Kind: domain.TargetDomain, Value: "example.com"},
		},
		{
			name: "images drop blanks and ignore value",
			in:   domain.Target{Kind: domain.TargetImages, Value: "x", Values: []string{" a.jpg", "", "  "}},
			want: domain.Target{Kind: domain.TargetImages, Values: []string{"a.jpg"}},
		},
		{
			name:    "empty value",
			in:      domain.Target{Kind: domain.TargetPhone, Value: "   "},
			want:    domain.Target{Kind: domain.TargetPhone},
			wantErr: true,
		},
		{
			name:    "no images",
			in:      domain.Target{Kind: domain.TargetImages, Values: []string{""}},
			want:    domain.Target{Kind: domain.TargetImages},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			in:      domain.Target{Kind: "email", Value: "a@b.c"},
			want:    domain.Target{Kind: "email", Value: "a@b.c"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			require.Equal(t, tt.want, got)

			err := got.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, serrors.ErrBadRequest)

				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTarget_Descriptor(t *testing.T) {
	require.Equal(t, map[string]any{"username": "alice"},
		domain.Target{Kind: domain.TargetUsername, Value: "alice"}.Descriptor())
	require.Equal(t, map[string]any{"images": []string{"a.jpg"}},
		domain.Target{Kind: domain.TargetImages, Values: []string{"a.jpg"}}.Descriptor())
}

func TestParseScanID(t *testing.T) {
	id, err := domain.ParseScanID("6f1c2a8e-6f44-4c3e-9b55-4d6f5a1c2b3d")
	require.NoError(t, err)
	require.Equal(t, "6f1c2a8e-6f44-4c3e-9b55-4d6f5a1c2b3d", id.String())

	_, err = domain.ParseScanID("nope")
	require.Error(t, err)
}

func TestScanID_JSON(t *testing.T) {
	id, err := domain.ParseScanID("6f1c2a8e-6f44-4c3e-9b55-4d6f5a1c2b3d")
	require.NoError(t, err)

	b, err := json.Marshal(map[string]domain.ScanID{"id": id})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"6f1c2a8e-6f44-4c3e-9b55-4d6f5a1c2b3d"}`, string(b))

	var back map[string]domain.ScanID
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, id, back["id"])
}
