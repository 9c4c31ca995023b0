package domain

// Order is a strategy's intent to trade one product at a limit price.
// Quantity is signed: positive buys, negative sells. Orders are tick-scoped
// values; only their effect on the book and ledger outlives processing.
type Order struct {
	Product  string
	Price    int64 // tick-size units
	Quantity int64 // signed, zero invalid
}

// Side derives the order direction from the quantity sign.
func (o Order) Side() Side {
	if o.Quantity >= 0 {
		return SideBuy
	}
	return SideSell
}

// Abs returns the unsigned order quantity.
func (o Order) Abs() int64 {
	if o.Quantity < 0 {
		return -o.Quantity
	}
	return o.Quantity
}

// Valid reports whether the order is well-formed. Malformed orders are
// silently ignored by the engine rather than rejected with an error.
func (o Order) Valid() bool {
	return o.Product != "" && o.Price > 0 && o.Quantity != 0
}
