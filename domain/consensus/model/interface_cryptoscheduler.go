package model

import "context"

// CryptoScheduler accumulates crypto items from concurrent verification
// flows and verifies them in batches. Submit returns a channel that reports
// the item's individual verdict; a failing batch is re-checked item by item
// so that one forged signature never condemns its batch neighbors.
type CryptoScheduler interface {
	Start()
	Stop()
	Submit(ctx context.Context, item *CryptoItem) <-chan error
}
