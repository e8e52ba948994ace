package models

// Side как в API биржи: "BUY"/"SELL" или пустая строка.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite возвращает обратную сторону, для SideNone тоже SideNone.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

// Sign: +1 для покупки, -1 для продажи.
func (s Side) Sign() float64 {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}

func (s Side) String() string {
	if s == SideNone {
		return "NONE"
	}
	return string(s)
}

func ParseSide(v string) Side {
	switch v {
	case "BUY", "buy", "Buy":
		return SideBuy
	case "SELL", "sell", "Sell":
		return SideSell
	default:
		return SideNone
	}
}
