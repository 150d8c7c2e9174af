package orderbook

import "errors"

var (
	ErrInvalidOrderQty = errors.New("invalid order qty")
)
