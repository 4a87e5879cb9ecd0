package authn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, tokenHash, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.NoError(t, ValidateTokenFormat(token))
	assert.Equal(t, HashToken(token), tokenHash)
	assert.Len(t, tokenHash, 64) // hex sha256

	// Two generations never collide
	token2, _, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestValidateTokenFormat(t *testing.T) {
	cases := []struct {
		name  string
		token string
		valid bool
	}{
		{"valid", "ptc_dGVzdHRva2VuZGF0YQ", true},
		{"wrong prefix", "tok_dGVzdA", false},
		{"no prefix", "dGVzdA", false},
		{"prefix only", "ptc_", false},
		{"bad base64", "ptc_!!!not-base64!!!", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTokenFormat(tc.token)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
