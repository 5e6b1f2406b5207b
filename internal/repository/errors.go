// Package repository holds the MySQL data access for users, sessions,
// assets, generation records and calendar events.  Repositories speak raw
// SQL over database/sql and return either the sentinel errors below or the
// driver error untouched; translating those into the application error
// taxonomy is the service layer's job.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by id (and owner, where the
// table is owned) does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrUnknownAsset is returned when an attachment references an asset id
// that does not exist.
var ErrUnknownAsset = errors.New("unknown asset")

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

func isDuplicate(err error) bool  { return isMySQLError(err, mysqlDuplicateEntry) }
func isForeignKey(err error) bool { return isMySQLError(err, mysqlNoReferencedRow) }

// withTx runs fn inside a transaction.  fn's error rolls the transaction
// back; otherwise it is committed and the commit error is returned.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
