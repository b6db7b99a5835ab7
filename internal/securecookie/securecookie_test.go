package securecookie_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yexiyue/actions/internal/securecookie"
)

func TestSealOpen(t *testing.T) {
	codec, err := securecookie.New("cookie-secret")
	require.NoError(t, err)

	sealed, err := codec.Seal("token", "eyJhbGciOiJIUzI1NiJ9.payload.sig")
	require.NoError(t, err)
	require.NotContains(t, sealed, "payload")

	opened, err := codec.Open("token", sealed)
	require.NoError(t, err)
	require.Equal(t, "eyJhbGciOiJIUzI1NiJ9.payload.sig", opened)

	again, err := codec.Seal("token", "eyJhbGciOiJIUzI1NiJ9.payload.sig")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestOpenRejects(t *testing.T) {
	codec, err := securecookie.New("cookie-secret")
	require.NoError(t, err)
	sealed, err := codec.Seal("csrf_token", "X")
	require.NoError(t, err)

	other, err := securecookie.New("another-secret")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	tests := []struct {
		name   string
		codec  *securecookie.Codec
		cookie string
		value  string
	}{
		{"wrong cookie name", codec, "token", sealed},
		{"wrong key", other, "csrf_token", sealed},
		{"tampered", codec, "csrf_token", tampered},
		{"not base64", codec, "csrf_token", "%%%"},
		{"too short", codec, "csrf_token", "AAAA"},
		{"plain value", codec, "csrf_token", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Open(tt.cookie, tt.value)
			require.ErrorIs(t, err, securecookie.ErrInvalidCookie)
		})
	}
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := securecookie.New("")
	require.Error(t, err)
}
