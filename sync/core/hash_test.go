package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_SameContentSameDigest(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("identical content"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("identical content"), 0o644))

	hasher := NewHasher(HashAlgorithmBLAKE2b256)
	digestA, err := hasher.HashFile(context.Background(), pathA)
	require.NoError(t, err)
	digestB, err := hasher.HashFile(context.Background(), pathB)
	require.NoError(t, err)

	assert.True(t, digestA.Equal(digestB))
}

func TestHasher_DifferentContentDifferentDigest(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("content one"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("content two"), 0o644))

	hasher := NewHasher(HashAlgorithmBLAKE2b256)
	digestA, err := hasher.HashFile(context.Background(), pathA)
	require.NoError(t, err)
	digestB, err := hasher.HashFile(context.Background(), pathB)
	require.NoError(t, err)

	assert.False(t, digestA.Equal(digestB))
}

func TestHasher_EmptyDigestMatchesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	hasher := NewHasher(HashAlgorithmBLAKE2b256)
	digest, err := hasher.HashFile(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, digest.Equal(hasher.EmptyDigest()))
}

func TestHasher_SHA256AndBLAKE2bDiffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("some content"), 0o644))

	blake, err := NewHasher(HashAlgorithmBLAKE2b256).HashFile(context.Background(), path)
	require.NoError(t, err)
	sha, err := NewHasher(HashAlgorithmSHA256).HashFile(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, blake.Equal(sha))
}

func TestParseHashAlgorithm(t *testing.T) {
	cases := map[string]HashAlgorithm{
		"":            HashAlgorithmBLAKE2b256,
		"blake2b":     HashAlgorithmBLAKE2b256,
		"blake2b-256": HashAlgorithmBLAKE2b256,
		"sha256":      HashAlgorithmSHA256,
	}
	for input, expected := range cases {
		actual, err := ParseHashAlgorithm(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseHashAlgorithm("md5")
	assert.Error(t, err)
}
