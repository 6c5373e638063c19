package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Repositories accept the handle on every method so a use case can run
// SELECT ... FOR UPDATE, status compare-and-swap and dependent inserts
// against the same transaction. The concrete type of `tx` is infra-defined
// (pgx.Tx for Postgres); repositories MUST accept nil (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
