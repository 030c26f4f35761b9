package book

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies an order record. Bid and Ask are standing orders; BidSale
// and AskSale are the two sides of an executed trade, distinguished by which
// side's originator is credited as the counterparty of record.
type Kind int

const (
	Unknown Kind = iota
	Bid
	Ask
	BidSale
	AskSale
)

// Well-known owner identities. DatasetOwner marks records replayed from the
// historical feed, SimOwner marks manual console orders, BotOwner marks
// orders placed by the autonomous strategy driver.
const (
	DatasetOwner = "dataset"
	SimOwner     = "simuser"
	BotOwner     = "bot"
)

func (k Kind) String() string {
	switch k {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	case BidSale:
		return "bidsale"
	case AskSale:
		return "asksale"
	default:
		return "unknown"
	}
}

// ParseKind maps the feed's type column to a Kind. Unrecognized values parse
// as Unknown; the loader treats that as a malformed row.
func ParseKind(s string) Kind {
	switch s {
	case "bid":
		return Bid
	case "ask":
		return Ask
	case "bidsale":
		return BidSale
	case "asksale":
		return AskSale
	default:
		return Unknown
	}
}

// IsSale reports whether the record is a trade rather than a standing order.
func (k Kind) IsSale() bool {
	return k == BidSale || k == AskSale
}

// Order is one quote or trade record. Price never changes after creation;
// Amount is mutated in place while the record participates in matching and
// an Amount of zero leaves the record inert.
type Order struct {
	Price      decimal.Decimal
	Amount     decimal.Decimal
	Timestamp  string
	Product    string
	Kind       Kind
	Owner      string
	Annotation string
}

// NewOrder builds a standing order owned by the replay feed. Callers placing
// their own orders overwrite Owner afterwards.
func NewOrder(price, amount decimal.Decimal, timestamp, product string, kind Kind) *Order {
	return &Order{
		Price:     price,
		Amount:    amount,
		Timestamp: timestamp,
		Product:   product,
		Kind:      kind,
		Owner:     DatasetOwner,
	}
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %s %s %s@%s (%s)",
		o.Timestamp, o.Product, o.Kind, o.Amount, o.Price, o.Owner)
}
