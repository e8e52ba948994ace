package signal

import (
	"fmt"
	"sort"

	"flow_bot/internal/models"
)

type BandPolicy string

const (
	PolicyAuto   BandPolicy = "auto"
	PolicyStrict BandPolicy = "strict"
	PolicyNested BandPolicy = "nested"
)

// Fallback: что делать, когда вложенные полосы не дают направления.
type Fallback string

const (
	FallbackReverseLast Fallback = "reverse_last"
	FallbackMeanSign    Fallback = "mean_sign"
	FallbackNone        Fallback = "none"
)

func ParseBandPolicy(v string) (BandPolicy, error) {
	switch p := BandPolicy(v); p {
	case PolicyAuto, PolicyStrict, PolicyNested:
		return p, nil
	case "":
		return PolicyAuto, nil
	}
	return "", fmt.Errorf("unknown band policy %q", v)
}

func ParseFallback(v string) (Fallback, error) {
	switch f := Fallback(v); f {
	case FallbackReverseLast, FallbackMeanSign, FallbackNone:
		return f, nil
	case "":
		return FallbackReverseLast, nil
	}
	return "", fmt.Errorf("unknown band fallback %q", v)
}

// Edges строит 2N границ mean ± m*std и сортирует их по возрастанию.
func Edges(mean, std float64, multipliers []float64) []float64 {
	if len(multipliers) == 0 {
		multipliers = []float64{0}
	}
	out := make([]float64, 0, 2*len(multipliers))
	for _, m := range multipliers {
		out = append(out, mean-m*std, mean+m*std)
	}
	sort.Float64s(out)
	return out
}

// Classify возвращает направление по границам полос.
// lastSide нужен только для FallbackReverseLast.
func Classify(edges []float64, mean float64, policy BandPolicy, fb Fallback, lastSide models.Side) models.Side {
	n := len(edges)
	if n == 0 {
		return models.SideNone
	}
	if policy == PolicyAuto {
		policy = PolicyStrict
		if n > 2 {
			policy = PolicyNested
		}
	}

	if policy == PolicyStrict || n < 3 {
		switch {
		case edges[0] > 0:
			return models.SideBuy
		case edges[n-1] < 0:
			return models.SideSell
		}
		return models.SideNone
	}

	switch {
	case edges[0] < 0 && edges[1] > 0:
		return models.SideBuy
	case edges[n-2] < 0 && edges[n-1] > 0:
		return models.SideSell
	}

	switch fb {
	case FallbackReverseLast:
		return lastSide.Opposite()
	case FallbackMeanSign:
		switch {
		case mean > 0:
			return models.SideBuy
		case mean < 0:
			return models.SideSell
		}
	}
	return models.SideNone
}
