package clients

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the fragments the dashboard calls are declared.

const erc20ABIJSON = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "transfer",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  }
]
`

const cdpManagerABIJSON = `
[
  {
    "name": "openCDP",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      { "name": "collateral", "type": "uint256" },
      { "name": "debt", "type": "uint256" },
      { "name": "interestRate", "type": "uint256" }
    ],
    "outputs": []
  },
  {
    "name": "getCDP",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "owner", "type": "address" }],
    "outputs": [
      { "name": "collateral", "type": "uint256" },
      { "name": "debt", "type": "uint256" },
      { "name": "interestRate", "type": "uint256" },
      { "name": "lastAccrual", "type": "uint256" },
      { "name": "isLiquidated", "type": "bool" }
    ]
  },
  {
    "name": "cBTCPrice",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

const stabilityPoolABIJSON = `
[
  {
    "name": "deposit",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "assets", "type": "uint256" },
      { "name": "receiver", "type": "address" }
    ],
    "outputs": [{ "name": "shares", "type": "uint256" }]
  },
  {
    "name": "withdraw",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "assets", "type": "uint256" },
      { "name": "receiver", "type": "address" },
      { "name": "owner", "type": "address" }
    ],
    "outputs": [{ "name": "shares", "type": "uint256" }]
  },
  {
    "name": "deposits",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "depositor", "type": "address" }],
    "outputs": [
      { "name": "amount", "type": "uint256" },
      { "name": "lastYieldUpdate", "type": "uint256" }
    ]
  },
  {
    "name": "yieldEarned",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "depositor", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "totalDeposited",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "totalYield",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "totalAssets",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "totalSupply",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

const swapABIJSON = `
[
  {
    "name": "swapUsdtForZest",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "amount", "type": "uint256" }],
    "outputs": []
  },
  {
    "name": "swapZestForUsdt",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "amount", "type": "uint256" }],
    "outputs": []
  },
  {
    "name": "getOutputAmount",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "fromToken", "type": "address" },
      { "name": "toToken", "type": "address" },
      { "name": "amount", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

const l2RegistrarABIJSON = `
[
  {
    "name": "available",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "label", "type": "string" }],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "register",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "label", "type": "string" },
      { "name": "owner", "type": "address" }
    ],
    "outputs": []
  },
  {
    "name": "registry",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "address" }]
  }
]
`

const l2RegistryABIJSON = `
[
  {
    "name": "baseNode",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "bytes32" }]
  },
  {
    "name": "ownerOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "tokenId", "type": "uint256" }],
    "outputs": [{ "name": "", "type": "address" }]
  }
]
`

const ensRegistryABIJSON = `
[
  {
    "name": "resolver",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "node", "type": "bytes32" }],
    "outputs": [{ "name": "", "type": "address" }]
  }
]
`

const ensResolverABIJSON = `
[
  {
    "name": "supportsInterface",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "interfaceID", "type": "bytes4" }],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "resolve",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "name", "type": "bytes" },
      { "name": "data", "type": "bytes" }
    ],
    "outputs": [{ "name": "", "type": "bytes" }]
  },
  {
    "name": "addr",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "node", "type": "bytes32" }],
    "outputs": [{ "name": "", "type": "address" }]
  },
  {
    "name": "text",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "node", "type": "bytes32" },
      { "name": "key", "type": "string" }
    ],
    "outputs": [{ "name": "", "type": "string" }]
  }
]
`

var (
	ERC20ABI         = mustParseABI(erc20ABIJSON)
	CDPManagerABI    = mustParseABI(cdpManagerABIJSON)
	StabilityPoolABI = mustParseABI(stabilityPoolABIJSON)
	SwapABI          = mustParseABI(swapABIJSON)
	L2RegistrarABI   = mustParseABI(l2RegistrarABIJSON)
	L2RegistryABI    = mustParseABI(l2RegistryABIJSON)
	ENSRegistryABI   = mustParseABI(ensRegistryABIJSON)
	ENSResolverABI   = mustParseABI(ensResolverABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
