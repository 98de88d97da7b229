package papertrade

// Position is the derived per-symbol state at a point in time. It is computed
// by replay and owned by whoever asked for it; the ledger never caches it.
type Position struct {
	Symbol      string
	Quantity    Quantity // never negative in a valid ledger
	AvgCost     Money    // weighted-average purchase price of held shares, 0 when flat
	RealizedPnL Money    // cumulative signed profit from all sells of this symbol
}

// applyBuy folds a purchase into the position. The new average cost is the
// quantity-weighted mean of the old basis and the purchase price, computed
// exactly and rounded once to the money scale.
func (p Position) applyBuy(quantity Quantity, price Money) Position {
	newQty := p.Quantity.Add(quantity)
	totalCost := p.AvgCost.Mul(p.Quantity).Add(price.Mul(quantity))
	p.AvgCost = totalCost.Div(newQty).Round()
	p.Quantity = newQty
	return p
}

// applySell folds a sale into the position. The realized delta is
// (price - avgCost) * quantity, rounded once. The average cost of the
// remaining shares is unaffected by a sell; it resets to zero when the
// position is closed.
func (p Position) applySell(quantity Quantity, price Money) Position {
	realized := price.Sub(p.AvgCost).Mul(quantity).Round()
	p.RealizedPnL = p.RealizedPnL.Add(realized)
	p.Quantity = p.Quantity.Sub(quantity)
	if p.Quantity.IsZero() {
		p.AvgCost = M(0, price.Currency())
	}
	return p
}
