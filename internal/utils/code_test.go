package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationCode(t *testing.T) {
	t.Run("Generates code of requested length", func(t *testing.T) {
		for _, length := range []int{4, 6, 8} {
			code, err := GenerateVerificationCode(length)
			require.NoError(t, err)
			assert.Len(t, code, length, "Code should be %d digits", length)
		}
	})

	t.Run("Generates only numeric characters", func(t *testing.T) {
		code, err := GenerateVerificationCode(6)
		require.NoError(t, err)
		for i, c := range code {
			assert.True(t, c >= '0' && c <= '9',
				"Character at position %d (%c) should be numeric", i, c)
		}
	})

	t.Run("Keeps leading zeros", func(t *testing.T) {
		// Every generated code must be fixed width regardless of value
		for i := 0; i < 200; i++ {
			code, err := GenerateVerificationCode(6)
			require.NoError(t, err)
			require.Len(t, code, 6)

			num, err := strconv.Atoi(code)
			require.NoError(t, err, "Code should be numeric")
			assert.LessOrEqual(t, num, 999999)
		}
	})

	t.Run("Generates different codes", func(t *testing.T) {
		codes := make(map[string]bool)
		iterations := 100

		for i := 0; i < iterations; i++ {
			code, err := GenerateVerificationCode(6)
			require.NoError(t, err)
			codes[code] = true
		}

		uniqueRatio := float64(len(codes)) / float64(iterations)
		assert.Greater(t, uniqueRatio, 0.8,
			"Should have high code diversity (got %.2f%% unique)", uniqueRatio*100)
	})
}

func TestHashVerificationCode(t *testing.T) {
	hash := HashVerificationCode("123456", "pepper")

	assert.NotEmpty(t, hash)
	assert.NotContains(t, hash, "123456", "Digest must not contain the plaintext code")

	t.Run("Deterministic for same inputs", func(t *testing.T) {
		assert.Equal(t, hash, HashVerificationCode("123456", "pepper"))
	})

	t.Run("Different code different digest", func(t *testing.T) {
		assert.NotEqual(t, hash, HashVerificationCode("123457", "pepper"))
	})

	t.Run("Different pepper different digest", func(t *testing.T) {
		assert.NotEqual(t, hash, HashVerificationCode("123456", "other-pepper"))
	})
}

func TestVerifyCodeHash(t *testing.T) {
	hash := HashVerificationCode("042169", "pepper")

	assert.True(t, VerifyCodeHash("042169", "pepper", hash))
	assert.False(t, VerifyCodeHash("042168", "pepper", hash))
	assert.False(t, VerifyCodeHash("042169", "wrong-pepper", hash))
	assert.False(t, VerifyCodeHash("042169", "pepper", "not-a-hash"))
}

func TestCodeFormatPattern(t *testing.T) {
	pattern := CodeFormatPattern(6)

	assert.True(t, pattern.MatchString("123456"))
	assert.True(t, pattern.MatchString("000000"))
	assert.False(t, pattern.MatchString("12345"))
	assert.False(t, pattern.MatchString("1234567"))
	assert.False(t, pattern.MatchString("12345a"))
	assert.False(t, pattern.MatchString(""))

	assert.True(t, CodeFormatPattern(4).MatchString("1234"))
	assert.False(t, CodeFormatPattern(4).MatchString("123456"))
}
