package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// ContextWithTx attaches an open GORM transaction to the context so that
// repository calls made inside a unit of work share it.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction attached by ContextWithTx, or nil
// when the call is running outside a unit of work.
func TxFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// Session resolves the handle a repository should run on: the ambient
// transaction when one is present, otherwise the fallback connection bound
// to ctx.
func Session(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}
