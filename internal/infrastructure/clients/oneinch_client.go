package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/infrastructure/config"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OneInchClient клиент для работы с 1inch-совместимым API агрегатора
type OneInchClient struct {
	config *config.AggregatorConfig
	client *http.Client

	// адрес spender не меняется, запрашиваем один раз
	spenderMu sync.Mutex
	spender   *common.Address
}

// OneInchSpenderResponse ответ approve/spender
type OneInchSpenderResponse struct {
	Address string `json:"address"`
}

// OneInchSwapResponse ответ swap
type OneInchSwapResponse struct {
	ToTokenAmount string `json:"toTokenAmount"`
	Tx            struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
		Gas   int64  `json:"gas"`
	} `json:"tx"`
}

// OneInchErrorResponse ошибка от API агрегатора
type OneInchErrorResponse struct {
	StatusCode  int    `json:"statusCode"`
	Error       string `json:"error"`
	Description string `json:"description"`
}

// NewOneInchClient создает новый клиент агрегатора
func NewOneInchClient(config *config.AggregatorConfig) *OneInchClient {
	return &OneInchClient{
		config: config,
		client: &http.Client{Timeout: config.TimeoutDuration()},
	}
}

// Spender возвращает адрес роутера, которому маркет-мейкер выдает approve
func (c *OneInchClient) Spender(ctx context.Context) (common.Address, error) {
	c.spenderMu.Lock()
	defer c.spenderMu.Unlock()

	if c.spender != nil {
		return *c.spender, nil
	}

	body, err := c.get(ctx, "approve/spender", nil)
	if err != nil {
		return common.Address{}, err
	}

	var result OneInchSpenderResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return common.Address{}, fmt.Errorf("ошибка парсинга ответа: %w", err)
	}
	if !common.IsHexAddress(result.Address) {
		return common.Address{}, fmt.Errorf("агрегатор вернул некорректный spender: %q", result.Address)
	}

	spender := common.HexToAddress(result.Address)
	c.spender = &spender
	logger.LogPlain("🔍 Spender агрегатора: %s", spender.Hex())
	return spender, nil
}

// Swap запрашивает calldata свопа
func (c *OneInchClient) Swap(ctx context.Context, req services.SwapRequest) (*services.SwapQuote, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("некорректная сумма свопа: %v", req.Amount)
	}

	params := url.Values{}
	params.Set("fromTokenAddress", req.FromToken.Hex())
	params.Set("toTokenAddress", req.ToToken.Hex())
	params.Set("amount", req.Amount.String())
	params.Set("fromAddress", req.FromAddress.Hex())
	params.Set("slippage", req.Slippage.String())
	params.Set("disableEstimate", "true")

	body, err := c.get(ctx, "swap", params)
	if err != nil {
		return nil, err
	}

	var result OneInchSwapResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("ошибка парсинга ответа: %w", err)
	}
	if result.Tx.Data == "" {
		return nil, fmt.Errorf("агрегатор не вернул calldata")
	}

	callData, err := hexutil.Decode(result.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("некорректная calldata: %w", err)
	}

	quote := &services.SwapQuote{
		To:       common.HexToAddress(result.Tx.To),
		CallData: callData,
	}
	if result.ToTokenAmount != "" {
		if amount, ok := new(big.Int).SetString(result.ToTokenAmount, 10); ok {
			quote.ToAmount = amount
		}
	}

	return quote, nil
}

// get выполняет GET запрос к API агрегатора
func (c *OneInchClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Add("accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Add("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp OneInchErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Description != "" {
			return nil, fmt.Errorf("ошибка агрегатора: %s (код: %d)", errResp.Description, resp.StatusCode)
		}
		return nil, fmt.Errorf("неверный статус код: %d", resp.StatusCode)
	}

	return body, nil
}
