package db

import "context"

// Transactor allows you to run queries from repositories within a transaction.
// The invitation accept path relies on this boundary: the status transition
// and the roster insert commit together or not at all.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
