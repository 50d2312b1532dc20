package types

// Network names the chains the dashboard talks to.
type Network string

const (
	// NetworkCitrea holds the protocol contracts and balances.
	NetworkCitrea Network = "citrea-testnet"
	// NetworkENS is where .zest.eth names resolve.
	NetworkENS Network = "ethereum-sepolia"
	// NetworkRegistrar hosts the L2 registrar that mints names.
	NetworkRegistrar Network = "base-sepolia"
)

func (n Network) String() string {
	return string(n)
}
