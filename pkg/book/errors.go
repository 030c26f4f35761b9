package book

import "errors"

var (
	// ErrEmptyOrders is returned by the price extrema queries when the input
	// sequence is empty.
	ErrEmptyOrders = errors.New("book: empty order sequence")

	// ErrNoTimestamps is returned by timestamp navigation when the store
	// holds no buckets at all. It is distinct from "no later bucket exists",
	// which wraps to the earliest timestamp instead.
	ErrNoTimestamps = errors.New("book: store has no timestamps")
)
