package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyRef = "smartwallet/keys/0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"

func TestStorePutUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "--multiline", "--force", testKeyRef}, args)
			assert.Equal(t, "0xabc\n", input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Put(context.Background(), testKeyRef, "0xabc"))
	assert.True(t, called)
}

func TestStoreGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		stdout string
	}{
		{name: "trailing newline", stdout: "0xabc\n"},
		{name: "windows newline", stdout: "0xabc\r\n"},
		{name: "extra metadata lines", stdout: "0xabc\nimported: 2026-01-01\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &Store{
				run: func(ctx context.Context, input string, args ...string) (string, string, error) {
					assert.Equal(t, []string{"show", testKeyRef}, args)
					assert.Empty(t, input)
					return tc.stdout, "", nil
				},
			}

			value, err := store.Get(context.Background(), testKeyRef)
			require.NoError(t, err)
			assert.Equal(t, "0xabc", value)
		})
	}
}

func TestStoreGetMissingEntryReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: " + testKeyRef + " is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), testKeyRef)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteUsesPassRemoveAndIgnoresMissing(t *testing.T) {
	t.Parallel()

	calls := 0
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			calls++
			assert.Equal(t, []string{"rm", "--force", testKeyRef}, args)
			if calls == 1 {
				return "", "", nil
			}
			return "", "Error: " + testKeyRef + " is not in the password store.", errors.New("exit status 1")
		},
	}

	require.NoError(t, store.Delete(context.Background(), testKeyRef))
	require.NoError(t, store.Delete(context.Background(), testKeyRef))
	assert.Equal(t, 2, calls)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed: No secret key", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), testKeyRef)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass show")
	assert.ErrorContains(t, err, testKeyRef)
	assert.ErrorContains(t, err, "decryption failed")
}
