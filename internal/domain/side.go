package domain

// Side is the direction of an order or of one half of a book.
type Side int

const (
	SideBuy  Side = iota // bids
	SideSell             // asks
)

// Opposite returns the side an order of this direction crosses against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// SideFromString parses the textual form produced by Side.String.
func SideFromString(s string) (Side, bool) {
	switch s {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	default:
		return 0, false
	}
}
