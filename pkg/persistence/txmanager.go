package persistence

import "context"

// TxManager runs a function inside a storage transaction. The context passed
// to fn carries the transaction; store operations invoked with it join the
// same atomic unit. This is the boundary that lets a business write and its
// outbox record commit or roll back together.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error)
}
