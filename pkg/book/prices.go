package book

import "github.com/shopspring/decimal"

// HighPrice returns the highest price across the records. An empty sequence
// is an error; callers probing a possibly-empty book check length first.
func HighPrice(orders []*Order) (decimal.Decimal, error) {
	if len(orders) == 0 {
		return decimal.Decimal{}, ErrEmptyOrders
	}
	max := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price.GreaterThan(max) {
			max = o.Price
		}
	}
	return max, nil
}

// LowPrice returns the lowest price across the records. An empty sequence is
// an error.
func LowPrice(orders []*Order) (decimal.Decimal, error) {
	if len(orders) == 0 {
		return decimal.Decimal{}, ErrEmptyOrders
	}
	min := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price.LessThan(min) {
			min = o.Price
		}
	}
	return min, nil
}
