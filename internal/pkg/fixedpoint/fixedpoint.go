// Package fixedpoint переводит значения между внутренним 18-знаковым
// представлением и нативными целыми единицами токенов.
package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WadDecimals точность внутреннего представления (wei-семантика)
const WadDecimals = 18

var ten = big.NewInt(10)

// pow10 возвращает 10^n
func pow10(n int) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// FromWad переводит 18-знаковое целое (например, ответ оракула) в decimal
func FromWad(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -WadDecimals)
}

// ToWad переводит decimal в 18-знаковое целое с отбрасыванием лишних знаков
func ToWad(v decimal.Decimal) *big.Int {
	return v.Shift(WadDecimals).Truncate(0).BigInt()
}

// ScaleFactor возвращает 10^(18 - tokenDecimals)
func ScaleFactor(tokenDecimals uint8) (*big.Int, error) {
	if tokenDecimals > WadDecimals {
		return nil, fmt.Errorf("точность токена %d больше %d не поддерживается", tokenDecimals, WadDecimals)
	}
	return pow10(WadDecimals - int(tokenDecimals)), nil
}

// ToTokenUnits переводит значение в нативные единицы токена:
// сначала в 18-знаковое целое, затем деление на 10^(18 - decimals).
// Деление целочисленное, остаток отбрасывается в сторону нуля.
func ToTokenUnits(v decimal.Decimal, tokenDecimals uint8) (*big.Int, error) {
	factor, err := ScaleFactor(tokenDecimals)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Quo(ToWad(v), factor), nil
}

// FromTokenUnits переводит нативные единицы токена обратно в decimal
func FromTokenUnits(amount *big.Int, tokenDecimals uint8) (decimal.Decimal, error) {
	factor, err := ScaleFactor(tokenDecimals)
	if err != nil {
		return decimal.Zero, err
	}
	if amount == nil {
		return decimal.Zero, nil
	}
	return FromWad(new(big.Int).Mul(amount, factor)), nil
}

// Unit возвращает наименьшую представимую единицу токена в decimal
func Unit(tokenDecimals uint8) decimal.Decimal {
	return decimal.New(1, -int32(tokenDecimals))
}

// MaxUint256 максимальное значение uint256 (потолок approve)
func MaxUint256() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}

// ParseBigInt разбирает десятичную строку целого числа
func ParseBigInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("некорректное целое число: %q", s)
	}
	return v, nil
}
