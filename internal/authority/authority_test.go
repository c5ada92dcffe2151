package authority

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgram = common.HexToHash("0x4a4d4d0000000000000000000000000000000000000000000000000000000001")
	assetX      = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000aa")
	assetY      = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000bb")
	assetZ      = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000cc")
)

func TestFindAddressDeterministic(t *testing.T) {
	first, nonce1, err := FindAddress(testProgram, PoolSeed, assetX.Bytes(), assetY.Bytes())
	require.NoError(t, err)
	second, nonce2, err := FindAddress(testProgram, PoolSeed, assetX.Bytes(), assetY.Bytes())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, nonce1, nonce2)
	assert.False(t, onCurve(first))
}

func TestPoolAuthorityUnorderedPair(t *testing.T) {
	ab, err := PoolAuthority(testProgram, assetX, assetY)
	require.NoError(t, err)
	ba, err := PoolAuthority(testProgram, assetY, assetX)
	require.NoError(t, err)

	assert.Equal(t, ab.Address, ba.Address)
	assert.Equal(t, ab.Nonce, ba.Nonce)
}

func TestPoolAuthorityDistinctPairs(t *testing.T) {
	xy, err := PoolAuthority(testProgram, assetX, assetY)
	require.NoError(t, err)
	xz, err := PoolAuthority(testProgram, assetX, assetZ)
	require.NoError(t, err)
	yz, err := PoolAuthority(testProgram, assetY, assetZ)
	require.NoError(t, err)

	assert.NotEqual(t, xy.Address, xz.Address)
	assert.NotEqual(t, xy.Address, yz.Address)
	assert.NotEqual(t, xz.Address, yz.Address)
}

func TestPoolAuthorityDependsOnProgram(t *testing.T) {
	other := common.HexToHash("0x02")
	a, err := PoolAuthority(testProgram, assetX, assetY)
	require.NoError(t, err)
	b, err := PoolAuthority(other, assetX, assetY)
	require.NoError(t, err)

	assert.NotEqual(t, a.Address, b.Address)
}

func TestReserveAuthorityDiffersPerAsset(t *testing.T) {
	pool, err := PoolAuthority(testProgram, assetX, assetY)
	require.NoError(t, err)

	resX, err := ReserveAuthority(testProgram, assetX, pool.Address)
	require.NoError(t, err)
	resY, err := ReserveAuthority(testProgram, assetY, pool.Address)
	require.NoError(t, err)

	assert.NotEqual(t, resX.Address, resY.Address)
	assert.NotEqual(t, resX.Address, pool.Address)
}

func TestAuthorityVerify(t *testing.T) {
	auth, err := PoolAuthority(testProgram, assetX, assetY)
	require.NoError(t, err)
	assert.True(t, auth.Verify(testProgram))

	forged := auth
	forged.Seeds = [][]byte{PoolSeed, assetX.Bytes(), assetZ.Bytes()}
	assert.False(t, forged.Verify(testProgram))

	wrongNonce := auth
	wrongNonce.Nonce = auth.Nonce + 1
	assert.False(t, wrongNonce.Verify(testProgram))

	assert.False(t, auth.Verify(common.HexToHash("0x03")))
}

func TestCreateAddressSeedLimits(t *testing.T) {
	long := make([]byte, MaxSeedLen+1)
	_, err := CreateAddress(testProgram, long)
	require.ErrorIs(t, err, ErrSeedTooLong)

	seeds := make([][]byte, MaxSeeds+1)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, err = CreateAddress(testProgram, seeds...)
	require.ErrorIs(t, err, ErrTooManySeeds)

	_, _, err = FindAddress(testProgram, seeds[:MaxSeeds]...)
	require.ErrorIs(t, err, ErrTooManySeeds)
}

func TestCanonicalPair(t *testing.T) {
	lo, hi := CanonicalPair(assetY, assetX)
	assert.Equal(t, assetX, lo)
	assert.Equal(t, assetY, hi)

	lo, hi = CanonicalPair(assetX, assetY)
	assert.Equal(t, assetX, lo)
	assert.Equal(t, assetY, hi)
}

func TestUserKeyOnCurve(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	key := UserKey(&priv.PublicKey)
	assert.True(t, OnCurve(key))

	pool, err := PoolAuthority(testProgram, assetX, assetY)
	require.NoError(t, err)
	assert.False(t, OnCurve(pool.Address))
}

func TestPoolSignerMatchesDerived(t *testing.T) {
	derived, err := PoolAuthority(testProgram, assetY, assetX)
	require.NoError(t, err)

	rebuilt := PoolSigner(derived.Address, assetX, assetY, derived.Nonce)
	assert.Equal(t, derived, rebuilt)
	assert.True(t, rebuilt.Verify(testProgram))

	wrongNonce := PoolSigner(derived.Address, assetX, assetY, derived.Nonce-1)
	assert.False(t, wrongNonce.Verify(testProgram))
}
