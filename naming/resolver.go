package naming

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
)

const (
	// ShortSuffix is the suffix users type.
	ShortSuffix = ".zest"
	// FullSuffix is the suffix registered under ENS.
	FullSuffix = ".zest.eth"
)

// NameResolver maps a fully-qualified name to its address record.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (common.Address, error)
}

// QualifyName reports whether identifier follows the naming convention
// and returns the fully-qualified form to look up.
func QualifyName(identifier string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(identifier))
	switch {
	case strings.HasSuffix(lower, FullSuffix), strings.HasSuffix(lower, ".eth"):
		return lower, true
	case strings.HasSuffix(lower, ShortSuffix):
		return strings.TrimSuffix(lower, ShortSuffix) + FullSuffix, true
	}
	return "", false
}

// Resolver turns a user identifier into a canonical address.
type Resolver struct {
	names   NameResolver
	timeout time.Duration
	log     logger.Logger
}

func NewResolver(names NameResolver, timeout time.Duration, log logger.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{names: names, timeout: timeout, log: logger.OrNoop(log)}
}

// Resolve tries a name lookup for names, then falls back to address
// validation. The result is always checksummed.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (common.Address, error) {
	identifier = strings.TrimSpace(identifier)

	if full, ok := QualifyName(identifier); ok && r.names != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		addr, err := r.names.Resolve(lookupCtx, full)
		cancel()
		if err == nil {
			return addr, nil
		}
		r.log.Warn("name lookup failed, trying address format", map[string]any{
			"identifier": identifier,
			"name":       full,
			"error":      err,
		})
	}

	addr, err := utils.ValidateAddress(identifier)
	if err != nil {
		return common.Address{}, types.NewError(types.ErrResolution,
			fmt.Sprintf("failed to resolve address or name %q", identifier), err)
	}
	return addr, nil
}
