package database

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
)

// Dialect は SQL 方言を表します。クエリは PostgreSQL 形式 ($1, $2, ...) で記述し、
// Rebind で各方言のプレースホルダに変換します。
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DialectFor はデータベースタイプに対応する Dialect を返します。
func DialectFor(dbType string) (Dialect, bool) {
	switch strings.ToLower(dbType) {
	case config.DatabaseTypePostgres, config.DatabaseTypePgx:
		return DialectPostgres, true
	case config.DatabaseTypeMySQL:
		return DialectMySQL, true
	default:
		return "", false
	}
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// Rebind は $n 形式のプレースホルダを方言に合わせて書き換えます。
// MySQL では位置引数になるため、クエリ中の $n は昇順に並んでいる必要があります。
func (d Dialect) Rebind(query string) string {
	if d == DialectMySQL {
		return placeholderPattern.ReplaceAllString(query, "?")
	}
	return query
}

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// IsUniqueViolation はエラーが一意制約違反かどうかを判定します。
// lib/pq、pgx、go-sql-driver/mysql の各ドライバのエラー型に対応します。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return false
}
