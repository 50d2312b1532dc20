package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/text/unicode/norm"
)

// DefaultENSRegistry is the ENS registry on mainnet and Sepolia.
var DefaultENSRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// extendedResolverID is the ERC-165 id of resolve(bytes,bytes) (ENSIP-10).
var extendedResolverID = [4]byte{0x90, 0x61, 0xb9, 0x23}

// ENSClient resolves names through the ENS registry and public resolvers.
// Names without a resolver of their own are served by the nearest parent
// resolver when it supports wildcard resolution.
type ENSClient struct {
	caller   ContractCaller
	registry *Contract
}

func NewENSClient(caller ContractCaller, registry common.Address) *ENSClient {
	if registry == (common.Address{}) {
		registry = DefaultENSRegistry
	}
	return &ENSClient{
		caller:   caller,
		registry: NewContract(caller, registry, ENSRegistryABI),
	}
}

// NormalizeName lower-cases and NFC-normalises a name before hashing.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
}

// Namehash computes the EIP-137 node of name.
func Namehash(name string) common.Hash {
	var node common.Hash
	name = NormalizeName(name)
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), labelHash))
	}
	return node
}

// DNSEncode returns name in DNS wire format: length-prefixed labels
// followed by a zero byte.
func DNSEncode(name string) ([]byte, error) {
	name = NormalizeName(name)
	out := make([]byte, 0, len(name)+2)
	if name != "" {
		for _, label := range strings.Split(name, ".") {
			if label == "" || len(label) > 255 {
				return nil, fmt.Errorf("invalid label %q in %s", label, name)
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
		}
	}
	return append(out, 0), nil
}

type nameResolver struct {
	contract *Contract
	wildcard bool
}

// findResolver walks from name towards the root until the registry
// returns a resolver. A parent's resolver only counts when it is wildcard
// capable.
func (c *ENSClient) findResolver(ctx context.Context, name string) (*nameResolver, error) {
	name = NormalizeName(name)
	current := name
	for current != "" {
		addr, err := c.registry.CallAddress(ctx, "resolver", Namehash(current))
		if err != nil {
			return nil, fmt.Errorf("registry resolver: %w", err)
		}
		if addr != (common.Address{}) {
			res := &nameResolver{contract: NewContract(c.caller, addr, ENSResolverABI)}
			res.wildcard = supportsWildcard(ctx, res.contract)
			if current != name && !res.wildcard {
				return nil, ErrNoResolver
			}
			return res, nil
		}
		_, parent, ok := strings.Cut(current, ".")
		if !ok {
			break
		}
		current = parent
	}
	return nil, ErrNoResolver
}

// supportsWildcard treats a failed ERC-165 call as no support.
func supportsWildcard(ctx context.Context, res *Contract) bool {
	ok, err := res.CallBool(ctx, "supportsInterface", extendedResolverID)
	return err == nil && ok
}

// query runs a record lookup of name. A nil result means the resolver
// returned no data.
func (r *nameResolver) query(ctx context.Context, name, method string, args ...interface{}) ([]interface{}, error) {
	callArgs := append([]interface{}{Namehash(name)}, args...)
	if !r.wildcard {
		return r.contract.Call(ctx, method, callArgs...)
	}

	inner, err := r.contract.Pack(method, callArgs...)
	if err != nil {
		return nil, err
	}
	encoded, err := DNSEncode(name)
	if err != nil {
		return nil, err
	}
	out, err := r.contract.Call(ctx, "resolve", encoded, inner)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("resolve: expected 1 output, got %d", len(out))
	}
	raw, ok := out[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("resolve: unexpected output type %T", out[0])
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return r.contract.abi.Unpack(method, raw)
}

// Resolve returns the address record of name. Unset records yield ErrNameNotFound.
func (c *ENSClient) Resolve(ctx context.Context, name string) (common.Address, error) {
	res, err := c.findResolver(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNoResolver) {
			return common.Address{}, ErrNameNotFound
		}
		return common.Address{}, err
	}
	out, err := res.query(ctx, name, "addr")
	if err != nil {
		return common.Address{}, fmt.Errorf("resolver addr: %w", err)
	}
	if len(out) == 0 {
		return common.Address{}, ErrNameNotFound
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("resolver addr: unexpected output type %T", out[0])
	}
	if addr == (common.Address{}) {
		return common.Address{}, ErrNameNotFound
	}
	return addr, nil
}

// Text returns the text record key of name, or "" when unset.
func (c *ENSClient) Text(ctx context.Context, name, key string) (string, error) {
	res, err := c.findResolver(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNoResolver) {
			return "", nil
		}
		return "", err
	}
	out, err := res.query(ctx, name, "text", key)
	if err != nil {
		return "", fmt.Errorf("resolver text: %w", err)
	}
	if len(out) == 0 {
		return "", nil
	}
	text, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("resolver text: unexpected output type %T", out[0])
	}
	return text, nil
}
