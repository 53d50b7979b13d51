package shared

import "context"

// UnitOfWork scopes a set of repository calls to one transaction. The
// function passed to Execute receives a context carrying the
// transaction; repositories resolve it from there.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitOfWorkFactory builds a fresh UnitOfWork per operation.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}
