package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded"}`)
	secret := "whsec_test"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var tests = []struct {
		name    string
		payload []byte
		header  string
		secret  string
		wantErr bool
	}{
		{
			name:    "valid signature",
			payload: payload,
			header:  Sign(payload, secret, now),
			secret:  secret,
		},
		{
			name:    "wrong secret",
			payload: payload,
			header:  Sign(payload, "whsec_other", now),
			secret:  secret,
			wantErr: true,
		},
		{
			name:    "tampered body",
			payload: []byte(`{"id":"evt_1","type":"charge.failed"}`),
			header:  Sign(payload, secret, now),
			secret:  secret,
			wantErr: true,
		},
		{
			name:    "timestamp outside tolerance",
			payload: payload,
			header:  Sign(payload, secret, now.Add(-10*time.Minute)),
			secret:  secret,
			wantErr: true,
		},
		{
			name:    "missing header",
			payload: payload,
			header:  "",
			secret:  secret,
			wantErr: true,
		},
		{
			name:    "malformed header",
			payload: payload,
			header:  "not-a-signature",
			secret:  secret,
			wantErr: true,
		},
		{
			name:    "second v1 entry matches after secret rotation",
			payload: payload,
			header:  Sign(payload, "whsec_old", now) + ",v1=" + Sign(payload, secret, now)[len("t=1748779200,v1="):],
			secret:  secret,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := VerifySignature(tt.payload, tt.header, tt.secret, DefaultTolerance, now)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrBadSignature)
				return
			}
			require.NoError(t, err)
		})
	}
}
