package database

import (
	"context"
	"database/sql"
)

// Tx はデータベーストランザクションのインターフェースです。
// sql.Tx の必要なメソッドを抽象化します。
type Tx interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBConnection はデータベース接続のインターフェースです。
// sql.DB の必要なメソッドを抽象化します。
type DBConnection interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlDBAdapter は sql.DB を DBConnection インターフェースに適合させるアダプターです。
// *sql.Tx はそのまま Tx を満たします。
type sqlDBAdapter struct {
	*sql.DB
}

// NewSQLDBAdapter は *sql.DB を DBConnection として扱うためのアダプターを作成します。
func NewSQLDBAdapter(db *sql.DB) DBConnection {
	return &sqlDBAdapter{DB: db}
}

// BeginTx は sql.DB の BeginTx メソッドを呼び出し、結果を Tx として返します。
func (a *sqlDBAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := a.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

var _ Tx = (*sql.Tx)(nil)
