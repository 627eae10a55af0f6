package prekey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_ProducesParsableBundle(t *testing.T) {
	pkb, priv, err := Generate(7)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, priv)

	var b Bundle
	require.NoError(t, json.Unmarshal(pkb, &b))
	require.Equal(t, uint32(7), b.KeyID)
	require.Len(t, b.PubKey, 32)
}

func TestGeneratePool_SequentialIDsAndFreshKeys(t *testing.T) {
	bundles, err := GeneratePool(10, 3)
	require.NoError(t, err)
	require.Len(t, bundles, 3)

	seen := make(map[string]bool)
	for i, pkb := range bundles {
		var b Bundle
		require.NoError(t, json.Unmarshal(pkb, &b))
		require.Equal(t, uint32(10+i), b.KeyID)
		require.False(t, seen[string(b.PubKey)])
		seen[string(b.PubKey)] = true
	}
}
