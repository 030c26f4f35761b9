package journal

import "fmt"

// Key schema for the trade journal:
//
//   seq                     → last assigned sequence number (8 bytes BE)
//   t:{seq}                 → Trade (JSON), seq zero-padded for ordering
//   p:{product}:{seq}       → empty marker, secondary index by product

const (
	prefixTrade   = "t:"
	prefixProduct = "p:"
)

func kLastSeq() []byte { return []byte("seq") }

// tradeKey formats the primary key. The sequence is zero-padded (20 digits)
// so lexicographic iteration is append order.
func tradeKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixTrade, seq))
}

func tradePrefix() []byte { return []byte(prefixTrade) }

// productKey formats the secondary index key for a product.
func productKey(product string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixProduct, product, seq))
}

func productPrefix(product string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixProduct, product))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
