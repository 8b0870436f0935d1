package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "regular password", password: "password123"},
		{name: "password with special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "short password", password: "short"},
		{name: "longer than bcrypt limit", password: strings.Repeat("a", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := GetHash(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, CompareHash(hash, tt.password))
		})
	}
}

func TestCompareHash(t *testing.T) {
	correctHash, err := GetHash("correct_password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		mismatch bool
		wantErr  bool
	}{
		{name: "matching password", hash: correctHash, password: "correct_password"},
		{name: "wrong password", hash: correctHash, password: "wrong_password", mismatch: true, wantErr: true},
		{name: "empty password", hash: correctHash, password: "", mismatch: true, wantErr: true},
		{name: "broken hash", hash: "not-a-hash", password: "correct_password", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareHash(tt.hash, tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.mismatch {
				assert.ErrorIs(t, err, ErrMismatch)
			} else {
				assert.NotErrorIs(t, err, ErrMismatch)
			}
		})
	}
}
