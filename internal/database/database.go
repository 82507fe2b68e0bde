// Package database contains useful functions to handle database operations, as create connections,
// run transactions, close resources and also helpers to parse result into structs.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"hospital-management/internal/configs"
	"reflect"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Second

type defaultConnection struct {
	db      *sql.DB
	timeout time.Duration
}

// Connection holds a DB instance.
type Connection interface {
	DB() *sql.DB
	CreateContext(ctx context.Context) (context.Context, context.CancelFunc)
	Close()
}

// Querier is implemented by both *sql.DB and *sql.Tx, so repositories can run the same
// statements inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB gets the DB instance associated to the connection.
func (d *defaultConnection) DB() *sql.DB {
	return d.db
}

// CreateContext creates a new context based on the given one, with the configured timeout.
func (d *defaultConnection) CreateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

// NewConnection creates a new DB instance based on the given configurations.
func NewConnection(config configs.Config) (Connection, error) {
	db, err := sql.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("could not create a connection: %w", err)
	}
	db.SetConnMaxLifetime(time.Minute * 3)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}
	timeout := config.DatabaseTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &defaultConnection{db: db, timeout: timeout}, nil
}

// Close closes the DB connection.
func (d *defaultConnection) Close() {
	if err := d.DB().Close(); err != nil {
		logrus.WithError(err).Error("could not close the database connection")
		return
	}
	logrus.Info("database connection released successfully")
}

// WithTransaction runs fn inside a transaction bound to the connection timeout. The
// transaction is committed when fn returns nil and rolled back otherwise, so either every
// statement issued through tx is applied or none is.
func WithTransaction(ctx context.Context, dbConn Connection, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := dbConn.CreateContext(ctx)
	defer cancel()
	tx, err := dbConn.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	if err = fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			logrus.WithError(rbErr).Warn("could not roll back transaction")
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// CloseRows closes the given rows.
func CloseRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logrus.WithError(err).Warn("could not close the given rows")
	}
}

// TransformRow transforms the current row given by the into the given struct.
// The transformation is performed by reflection, using a field tag called dbfield for that.
func TransformRow(rows *sql.Rows, model interface{}) error {
	modelType := reflect.TypeOf(model).Elem()
	modelValue := reflect.ValueOf(model)
	columns, err := rows.Columns()
	values := make([]interface{}, 0)
	if err != nil {
		return err
	}
	for _, column := range columns {
		for i := 0; i < modelType.NumField(); i++ {
			field := modelType.Field(i)
			dbfield := field.Tag.Get("dbfield")
			if dbfield != column {
				continue
			}
			values = append(values, modelValue.Elem().Field(i).Addr().Interface())
		}
	}
	if len(values) != len(columns) {
		return fmt.Errorf("%d columns returned but only %d could be mapped to %s", len(columns), len(values), modelType.Name())
	}
	if err = rows.Scan(values...); err != nil {
		return err
	}
	return nil
}
