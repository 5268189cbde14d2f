package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"

	"marketchat/pkg/errcode"
)

// RetryOptions controls the retry executor.
type RetryOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryOptions returns the options used by the write path.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 3,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   time.Second,
	}
}

// RunInTx runs fn inside a transaction, retrying the whole transaction
// on transient database errors. Each attempt gets a fresh transaction so
// a rolled-back attempt never leaks state into the next one.
func RunInTx(ctx context.Context, db *gorm.DB, opts RetryOptions, fn func(tx *gorm.DB) error) error {
	return Do(ctx, opts, func() error {
		return db.WithContext(ctx).Transaction(fn)
	})
}

// Do runs op, retrying on transient errors with exponential backoff.
// Terminal errors and context cancellation stop the retry loop immediately.
func Do(ctx context.Context, opts RetryOptions, op func() error) error {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	var err error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		if attempt == opts.MaxRetries {
			break
		}

		delay := backoffDelay(opts, attempt)
		log.CtxWarn(ctx, "transient error, retrying: attempt=%d, delay=%s, err=%v", attempt, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return errcode.ErrTemporarilyUnavailable.Wrap(err)
}

func backoffDelay(opts RetryOptions, attempt int) time.Duration {
	base := opts.BaseDelay
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	delay := base << (attempt - 1)
	if opts.MaxDelay > 0 && delay > opts.MaxDelay {
		delay = opts.MaxDelay
	}
	return delay
}

// Transient MySQL server error numbers: deadlock, lock wait timeout,
// read-only during failover, server shutdown in progress.
var transientMySQLErrors = map[uint16]bool{
	1213: true,
	1205: true,
	1290: true,
	1053: true,
}

// IsTransientError reports whether err is worth retrying. Business errors
// and missing rows are terminal; connection-level failures are not.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	var bizErr *errcode.Error
	if errors.As(err, &bizErr) {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return transientMySQLErrors[mysqlErr.Number]
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
