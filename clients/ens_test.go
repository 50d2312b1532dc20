package clients

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamehash(t *testing.T) {
	cases := map[string]string{
		"":        "0x0000000000000000000000000000000000000000000000000000000000000000",
		"eth":     "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae",
		"foo.eth": "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f",
	}
	for name, want := range cases {
		assert.Equal(t, want, Namehash(name).Hex(), name)
	}
}

func TestNamehashNormalizesCase(t *testing.T) {
	assert.Equal(t, Namehash("foo.eth"), Namehash("  Foo.ETH "))
}

func TestENSClientResolve(t *testing.T) {
	registry := common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	resolver := common.HexToAddress("0x1000000000000000000000000000000000000001")
	owner := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

	caller := newFakeCaller()
	caller.on(ENSRegistryABI, registry, "resolver", resolver)
	caller.on(ENSResolverABI, resolver, "addr", owner)
	caller.on(ENSResolverABI, resolver, "text", "ipfs://avatar")

	c := NewENSClient(caller, registry)
	got, err := c.Resolve(context.Background(), "vitalik.zest.eth")
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	text, err := c.Text(context.Background(), "vitalik.zest.eth", "avatar")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://avatar", text)
}

func TestENSClientResolveUnset(t *testing.T) {
	registry := common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	resolver := common.HexToAddress("0x1000000000000000000000000000000000000001")

	t.Run("no resolver", func(t *testing.T) {
		caller := newFakeCaller()
		caller.on(ENSRegistryABI, registry, "resolver", common.Address{})
		c := NewENSClient(caller, registry)

		_, err := c.Resolve(context.Background(), "nobody.eth")
		assert.ErrorIs(t, err, ErrNameNotFound)

		text, err := c.Text(context.Background(), "nobody.eth", "avatar")
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("zero address record", func(t *testing.T) {
		caller := newFakeCaller()
		caller.on(ENSRegistryABI, registry, "resolver", resolver)
		caller.on(ENSResolverABI, resolver, "addr", common.Address{})
		c := NewENSClient(caller, registry)

		_, err := c.Resolve(context.Background(), "empty.eth")
		assert.ErrorIs(t, err, ErrNameNotFound)
	})
}

func TestDNSEncode(t *testing.T) {
	got, err := DNSEncode("Bob.zest.eth")
	require.NoError(t, err)
	assert.Equal(t, "0x03626f62047a6573740365746800", hexutil.Encode(got))

	root, err := DNSEncode("")
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, root)

	_, err = DNSEncode("bob..eth")
	assert.Error(t, err)
}

func TestENSClientWildcardParent(t *testing.T) {
	ctx := context.Background()
	registry := common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	resolver := common.HexToAddress("0x1000000000000000000000000000000000000001")
	owner := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	const name = "bob.zest.eth"

	// Only the parent node has a resolver.
	caller := newFakeCaller()
	caller.on(ENSRegistryABI, registry, "resolver", common.Address{})
	caller.onCall(ENSRegistryABI, registry, "resolver", []interface{}{Namehash("zest.eth")}, resolver)
	caller.on(ENSResolverABI, resolver, "supportsInterface", true)

	encoded, err := DNSEncode(name)
	require.NoError(t, err)
	addrCall, err := ENSResolverABI.Pack("addr", Namehash(name))
	require.NoError(t, err)
	addrResult, err := ENSResolverABI.Methods["addr"].Outputs.Pack(owner)
	require.NoError(t, err)
	caller.onCall(ENSResolverABI, resolver, "resolve", []interface{}{encoded, addrCall}, addrResult)

	textCall, err := ENSResolverABI.Pack("text", Namehash(name), "avatar")
	require.NoError(t, err)
	textResult, err := ENSResolverABI.Methods["text"].Outputs.Pack("ipfs://bob")
	require.NoError(t, err)
	caller.onCall(ENSResolverABI, resolver, "resolve", []interface{}{encoded, textCall}, textResult)

	c := NewENSClient(caller, registry)
	got, err := c.Resolve(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	text, err := c.Text(ctx, name, "avatar")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://bob", text)
}

func TestENSClientParentWithoutWildcard(t *testing.T) {
	registry := common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	resolver := common.HexToAddress("0x1000000000000000000000000000000000000001")

	caller := newFakeCaller()
	caller.on(ENSRegistryABI, registry, "resolver", common.Address{})
	caller.onCall(ENSRegistryABI, registry, "resolver", []interface{}{Namehash("zest.eth")}, resolver)
	caller.on(ENSResolverABI, resolver, "supportsInterface", false)
	caller.on(ENSResolverABI, resolver, "addr", common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))

	c := NewENSClient(caller, registry)
	_, err := c.Resolve(context.Background(), "bob.zest.eth")
	assert.ErrorIs(t, err, ErrNameNotFound)
}

func TestENSClientDefaultsRegistry(t *testing.T) {
	c := NewENSClient(newFakeCaller(), common.Address{})
	assert.Equal(t, DefaultENSRegistry, c.registry.Address())
}
