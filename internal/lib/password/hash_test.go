package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "regular password", password: "password123"},
		{name: "special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "exactly min length", password: "12345678"},
		{name: "multibyte runes", password: "senhaçãoé"},
		{name: "too short", password: "short", wantErr: ErrTooShort},
		{name: "empty", password: "", wantErr: ErrTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := GetHash(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, CompareHash(hash, tt.password))
		})
	}
}

func TestCompareHash(t *testing.T) {
	hash, err := GetHash("correct_password")
	require.NoError(t, err)

	assert.NoError(t, CompareHash(hash, "correct_password"))
	assert.Error(t, CompareHash(hash, "wrong_password"))
	assert.Error(t, CompareHash(hash, ""))
	assert.Error(t, CompareHash("not-a-hash", "correct_password"))
}

func TestGetHash_Salted(t *testing.T) {
	h1, err := GetHash("password1")
	require.NoError(t, err)
	h2, err := GetHash("password1")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
