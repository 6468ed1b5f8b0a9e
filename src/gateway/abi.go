package gateway

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI of the trading module deployed behind each user's Safe. The protocol
// fee and profit-share percentage are module constants, not caller-supplied.
const moduleABIJSON = `[
	{"type":"function","name":"initializeCapital","stateMutability":"nonpayable","inputs":[{"name":"safe","type":"address"}],"outputs":[]},
	{"type":"function","name":"isTokenWhitelisted","stateMutability":"view","inputs":[{"name":"safe","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setTokenWhitelist","stateMutability":"nonpayable","inputs":[{"name":"safe","type":"address"},{"name":"token","type":"address"},{"name":"enabled","type":"bool"}],"outputs":[]},
	{"type":"function","name":"approveTokenForDex","stateMutability":"nonpayable","inputs":[{"name":"safe","type":"address"},{"name":"token","type":"address"},{"name":"spender","type":"address"}],"outputs":[]},
	{"type":"function","name":"executeTrade","stateMutability":"nonpayable","inputs":[{"name":"safe","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"minAmountOut","type":"uint256"},{"name":"poolFee","type":"uint24"},{"name":"profitReceiver","type":"address"}],"outputs":[{"name":"amountOut","type":"uint256"}]},
	{"type":"function","name":"closePosition","stateMutability":"nonpayable","inputs":[{"name":"safe","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"minAmountOut","type":"uint256"},{"name":"poolFee","type":"uint24"},{"name":"profitReceiver","type":"address"},{"name":"entryValue","type":"uint256"}],"outputs":[{"name":"amountOut","type":"uint256"}]},
	{"type":"function","name":"getSafeStats","stateMutability":"view","inputs":[{"name":"safe","type":"address"}],"outputs":[{"name":"initialized","type":"bool"},{"name":"initialBalance","type":"uint256"},{"name":"currentValue","type":"uint256"},{"name":"totalProfit","type":"uint256"},{"name":"tradeCount","type":"uint256"}]}
]`

// Minimal Safe surface: module authorization is verified on-chain at decision
// time, never from the cached flag.
const safeABIJSON = `[
	{"type":"function","name":"isModuleEnabled","stateMutability":"view","inputs":[{"name":"module","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

var (
	moduleABI = mustParseABI(moduleABIJSON)
	safeABI   = mustParseABI(safeABIJSON)
	erc20ABI  = mustParseABI(erc20ABIJSON)
)
