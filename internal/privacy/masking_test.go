package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", ""},
		{"expo envelope", "ExponentPushToken[abcdef123456]", "ExponentPushToken[***3456]"},
		{"short inner", "ExponentPushToken[abc]", "ExponentPushToken[***]"},
		{"bare token", "abcdef123456", "***3456"},
		{"short bare token", "abc", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskToken(tt.token))
		})
	}
}

func TestMaskUserID(t *testing.T) {
	assert.Equal(t, "5f3a9c1e", MaskUserID("5f3a9c1e-2b4d-4a6f-9c8e-123456789abc"))
	assert.Equal(t, "short", MaskUserID("short"))
	assert.Equal(t, "", MaskUserID(""))
}
