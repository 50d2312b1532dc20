package types

// TxPayload is an unsigned call the wallet signs and submits unmodified.
type TxPayload struct {
	To    string `json:"to"`
	Value string `json:"value"` // base units, decimal
	Data  string `json:"data"`  // 0x-prefixed call data, "0x" for plain transfers
}

// BalanceSnapshot holds base-unit balances of every asset for one address
type BalanceSnapshot struct {
	Address string `json:"address"`
	CBTC    string `json:"cbtc"`
	ZEST    string `json:"zest"`
	USDT    string `json:"usdt"`
}
