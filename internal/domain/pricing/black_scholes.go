package pricing

import (
	"math"

	"delta-hedge/internal/domain/entities"
)

// BlackScholesInput входные данные модели Black-Scholes
type BlackScholesInput struct {
	S float64 // спот
	K float64 // страйк
	T float64 // время до экспирации (годы)
	R float64 // безрисковая ставка
	V float64 // годовая волатильность
}

// Delta возвращает дельту европейского опциона.
// Для вырожденных входов (T <= 0, V <= 0) возвращает внутреннюю дельту.
func Delta(optionType entities.OptionType, in BlackScholesInput) float64 {
	if in.S <= 0 || in.K <= 0 {
		return 0
	}
	if in.T <= 0 || in.V <= 0 {
		return intrinsicDelta(optionType, in.S, in.K)
	}

	d1 := (math.Log(in.S/in.K) + (in.R+0.5*in.V*in.V)*in.T) / (in.V * math.Sqrt(in.T))

	if optionType == entities.OptionTypeCall {
		return normCdf(d1)
	}
	return normCdf(d1) - 1
}

// intrinsicDelta дельта в момент экспирации
func intrinsicDelta(optionType entities.OptionType, s, k float64) float64 {
	if optionType == entities.OptionTypeCall {
		if s > k {
			return 1
		}
		return 0
	}
	if s < k {
		return -1
	}
	return 0
}

// AnnualizeVol переводит волатильность тенора (sigma*sqrt(tau)) в годовую
func AnnualizeVol(termVol, sqrtRatio float64) float64 {
	if sqrtRatio <= 0 {
		return 0
	}
	return termVol / sqrtRatio
}

// normCdf стандартная нормальная функция распределения
func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
