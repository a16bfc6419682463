package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/errors"
)

func TestValidateThreadID(t *testing.T) {
	hexBody := strings.Repeat("ab", 32)

	tests := []struct {
		name     string
		threadID string
		wantErr  bool
	}{
		{"session id", "05" + hexBody, false},
		{"group id", "03" + hexBody, false},
		{"blinded id", "15" + hexBody, false},
		{"community url", "https://chat.example/room", false},
		{"empty", "", true},
		{"bad hex", "05" + strings.Repeat("zz", 32), true},
		{"short hex", "05abcd", true},
		{"unknown scheme", "ftp://chat.example/room", true},
		{"control character", "https://chat.example/\nroom", true},
		{"too long", "https://chat.example/" + strings.Repeat("a", 600), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreadID(tt.threadID)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParsePageLimit(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"default", "", 50, false},
		{"explicit", "10", 10, false},
		{"max", "500", 500, false},
		{"zero", "0", 0, true},
		{"over max", "501", 0, true},
		{"not a number", "ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageLimit(tt.raw, 50, 500)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	assert.NoError(t, ValidateStringLength("abc", "field", 1, 3))
	assert.Error(t, ValidateStringLength("", "field", 1, 3))
	assert.Error(t, ValidateStringLength("abcd", "field", 1, 3))
}
