package usecases

import (
	"context"
	"fmt"

	"delta-hedge/internal/domain/services"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolRoots корневые контракты, без которых цикл невозможен
type ProtocolRoots struct {
	Protocol services.Protocol
	Exchange services.OptionExchange
	Broker   services.PoolBroker
	Ledger   services.OptionLedger
	Funding  common.Address
}

// ResolveRoots разрешает брокер, реестр опционов и фондирующий токен от адресов Moret и Exchange.
// Ошибка здесь фатальна для всего цикла.
func ResolveRoots(ctx context.Context, registry services.ContractRegistry, moret, exchange common.Address) (*ProtocolRoots, error) {
	protocol := registry.Protocol(moret)

	brokerAddr, err := protocol.Broker(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения адреса брокера: %w", err)
	}

	exchangeContract := registry.Exchange(exchange)
	vaultAddr, err := exchangeContract.Vault(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения адреса реестра опционов: %w", err)
	}

	broker := registry.Broker(brokerAddr)
	funding, err := broker.Funding(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения фондирующего токена: %w", err)
	}

	if brokerAddr == (common.Address{}) || vaultAddr == (common.Address{}) {
		return nil, fmt.Errorf("протокол вернул нулевой адрес (broker %s, vault %s)", brokerAddr.Hex(), vaultAddr.Hex())
	}

	return &ProtocolRoots{
		Protocol: protocol,
		Exchange: exchangeContract,
		Broker:   broker,
		Ledger:   registry.Ledger(vaultAddr),
		Funding:  funding,
	}, nil
}
