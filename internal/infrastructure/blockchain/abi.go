package blockchain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Фиксированная ABI-поверхность внешних контрактов. Описаны только методы,
// которые вызывает хеджер.

const moretABIJSON = `[
 {"type":"function","name":"broker","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"getVolatilityChain","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

const exchangeABIJSON = `[
 {"type":"function","name":"vault","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"expireOption","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"payInto","type":"address"}],"outputs":[]}
]`

const brokerABIJSON = `[
 {"type":"function","name":"funding","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"getAllPools","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"address[]"}]}
]`

const vaultABIJSON = `[
 {"type":"function","name":"getActiveOptions","stateMutability":"view","inputs":[{"name":"pool","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
 {"type":"function","name":"getOption","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[
   {"name":"poType","type":"uint8"},
   {"name":"side","type":"uint8"},
   {"name":"status","type":"uint8"},
   {"name":"holder","type":"address"},
   {"name":"id","type":"uint256"},
   {"name":"createTime","type":"uint256"},
   {"name":"effectiveTime","type":"uint256"},
   {"name":"tenor","type":"uint256"},
   {"name":"maturity","type":"uint256"},
   {"name":"exerciseTime","type":"uint256"},
   {"name":"amount","type":"uint256"},
   {"name":"spot","type":"uint256"},
   {"name":"strike","type":"uint256"},
   {"name":"premium","type":"uint256"},
   {"name":"collateral","type":"uint256"}
 ]}]},
 {"type":"function","name":"calculateAggregateDelta","stateMutability":"view","inputs":[{"name":"pool","type":"address"},{"name":"price","type":"uint256"},{"name":"includeExpiring","type":"bool"}],"outputs":[{"name":"","type":"int256"}]},
 {"type":"function","name":"anyOptionExpiring","stateMutability":"view","inputs":[{"name":"pool","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"getExpiringOptionId","stateMutability":"view","inputs":[{"name":"pool","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const volatilityChainABIJSON = `[
 {"type":"function","name":"queryPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"queryVol","stateMutability":"view","inputs":[{"name":"tenor","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getSqrtRatio","stateMutability":"view","inputs":[{"name":"tenor","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const poolABIJSON = `[
 {"type":"function","name":"marketMaker","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const marketMakerABIJSON = `[
 {"type":"function","name":"underlying","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"funding","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"trade","stateMutability":"nonpayable","inputs":[
   {"name":"tokenIn","type":"address"},
   {"name":"amount","type":"uint256"},
   {"name":"spender","type":"address"},
   {"name":"data","type":"bytes"},
   {"name":"gasLimit","type":"uint256"}
 ],"outputs":[]}
]`

const erc20ABIJSON = `[
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	moretABI           = mustParseABI("Moret", moretABIJSON)
	exchangeABI        = mustParseABI("Exchange", exchangeABIJSON)
	brokerABI          = mustParseABI("MoretBroker", brokerABIJSON)
	vaultABI           = mustParseABI("OptionVault", vaultABIJSON)
	volatilityChainABI = mustParseABI("VolatilityChain", volatilityChainABIJSON)
	poolABI            = mustParseABI("Pool", poolABIJSON)
	marketMakerABI     = mustParseABI("MarketMaker", marketMakerABIJSON)
	erc20ABI           = mustParseABI("ERC20", erc20ABIJSON)
)

func mustParseABI(name, definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("некорректный ABI %s: %v", name, err))
	}
	return parsed
}
