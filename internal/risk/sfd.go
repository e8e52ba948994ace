package risk

import (
	"math"

	"flow_bot/internal/models"
)

// DefaultPins: пороги отклонения цены FX от спота, на которых биржа берёт SFD.
var DefaultPins = []float64{0.05, 0.1, 0.15, 0.2}

// SFD: статистика отклонения деривативa от базового актива.
type SFD struct {
	Known       bool
	Deviation   float64
	PenalSide   models.Side
	NearestDist float64
}

// ComputeSFD считает отклонение (fx - spot) / spot, штрафуемую сторону и дистанцию до ближайшего пина.
// Без цены спота статистика неизвестна и гейты SFD не срабатывают.
func ComputeSFD(fxMid, spotMid float64, pins []float64) SFD {
	if fxMid <= 0 || spotMid <= 0 || len(pins) == 0 {
		return SFD{NearestDist: math.Inf(1)}
	}
	dev := (fxMid - spotMid) / spotMid
	abs := math.Abs(dev)

	minPin, nearest := math.Inf(1), math.Inf(1)
	for _, p := range pins {
		minPin = math.Min(minPin, p)
		nearest = math.Min(nearest, math.Abs(p-abs))
	}

	s := SFD{Known: true, Deviation: dev, NearestDist: nearest}
	if abs >= minPin {
		s.PenalSide = models.SideSell
		if dev >= 0 {
			s.PenalSide = models.SideBuy
		}
	}
	return s
}
