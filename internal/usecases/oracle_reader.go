package usecases

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"delta-hedge/internal/domain/errors"
	"delta-hedge/internal/domain/pricing"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/fixedpoint"

	"github.com/shopspring/decimal"
)

// OracleReader читает спот и кривую волатильности одного токена.
// Создается на один цикл: кэш волатильности живет не дольше цикла.
type OracleReader struct {
	token  string
	oracle services.VolatilityOracle
	tenors []uint64

	mu       sync.Mutex
	volCache map[uint64]float64
}

// NewOracleReader создает читателя оракула. tenors - настроенные точки кривой в секундах
func NewOracleReader(token string, oracle services.VolatilityOracle, tenors []uint64) *OracleReader {
	sorted := append([]uint64(nil), tenors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &OracleReader{
		token:    token,
		oracle:   oracle,
		tenors:   sorted,
		volCache: make(map[uint64]float64),
	}
}

// Spot возвращает спот в 18-знаковом представлении и как decimal
func (r *OracleReader) Spot(ctx context.Context) (*big.Int, decimal.Decimal, error) {
	raw, err := r.oracle.QueryPrice(ctx)
	if err != nil {
		return nil, decimal.Zero, errors.NewOracleUnavailableError(r.token, err)
	}
	if raw == nil || raw.Sign() <= 0 {
		return nil, decimal.Zero, errors.NewOracleUnavailableError(r.token, fmt.Errorf("некорректный спот: %v", raw))
	}
	return raw, fixedpoint.FromWad(raw), nil
}

// QueryVol возвращает волатильность настроенного тенора так, как ее хранит кривая (sigma*sqrt(tau))
func (r *OracleReader) QueryVol(ctx context.Context, tenor uint64) (decimal.Decimal, error) {
	if !r.isConfigured(tenor) {
		return decimal.Zero, errors.NewUnsupportedTenorError(r.token, tenor)
	}

	raw, err := r.oracle.QueryVol(ctx, tenor)
	if err != nil {
		return decimal.Zero, errors.NewOracleUnavailableError(r.token, err)
	}
	if raw == nil || raw.Sign() <= 0 {
		return decimal.Zero, errors.NewUnsupportedTenorError(r.token, tenor)
	}
	return fixedpoint.FromWad(raw), nil
}

// AnnualizedVol возвращает годовую волатильность тенора
func (r *OracleReader) AnnualizedVol(ctx context.Context, tenor uint64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vol, ok := r.volCache[tenor]; ok {
		return vol, nil
	}

	termVol, err := r.QueryVol(ctx, tenor)
	if err != nil {
		return 0, err
	}

	rawRatio, err := r.oracle.GetSqrtRatio(ctx, tenor)
	if err != nil {
		return 0, errors.NewOracleUnavailableError(r.token, err)
	}
	if rawRatio == nil || rawRatio.Sign() <= 0 {
		return 0, errors.NewUnsupportedTenorError(r.token, tenor)
	}

	vol := pricing.AnnualizeVol(termVol.InexactFloat64(), fixedpoint.FromWad(rawRatio).InexactFloat64())
	r.volCache[tenor] = vol
	return vol, nil
}

// NearestTenor возвращает ближайшую настроенную точку кривой. При равенстве берется меньшая.
func (r *OracleReader) NearestTenor(seconds int64) uint64 {
	if len(r.tenors) == 0 {
		return 0
	}

	best := r.tenors[0]
	bestDiff := absDiff(seconds, best)
	for _, tenor := range r.tenors[1:] {
		if diff := absDiff(seconds, tenor); diff < bestDiff {
			best, bestDiff = tenor, diff
		}
	}
	return best
}

func (r *OracleReader) isConfigured(tenor uint64) bool {
	i := sort.Search(len(r.tenors), func(i int) bool { return r.tenors[i] >= tenor })
	return i < len(r.tenors) && r.tenors[i] == tenor
}

func absDiff(seconds int64, tenor uint64) uint64 {
	if seconds < 0 {
		seconds = 0
	}
	s := uint64(seconds)
	if s > tenor {
		return s - tenor
	}
	return tenor - s
}
