package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketchat/pkg/errcode"
)

func fastRetryOptions() RetryOptions {
	return RetryOptions{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetryOptions(), func() error {
		calls++
		if calls < 3 {
			return driver.ErrBadConn
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnTerminalError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetryOptions(), func() error {
		calls++
		return errcode.ErrConvNotFound
	})
	assert.ErrorIs(t, err, errcode.ErrConvNotFound)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetryOptions(), func() error {
		calls++
		return io.EOF
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var bizErr *errcode.Error
	require.True(t, errors.As(err, &bizErr))
	assert.Equal(t, errcode.ErrTemporarilyUnavailable.Code, bizErr.Code)
}

func TestDoHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastRetryOptions(), func() error {
		return driver.ErrBadConn
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(gorm.ErrRecordNotFound))
	assert.False(t, IsTransientError(errcode.ErrSendFailed))
	assert.False(t, IsTransientError(context.Canceled))
	assert.False(t, IsTransientError(&gomysql.MySQLError{Number: 1062}))

	assert.True(t, IsTransientError(&gomysql.MySQLError{Number: 1213}))
	assert.True(t, IsTransientError(&gomysql.MySQLError{Number: 1205}))
	assert.True(t, IsTransientError(driver.ErrBadConn))
	assert.True(t, IsTransientError(context.DeadlineExceeded))
	assert.True(t, IsTransientError(io.ErrUnexpectedEOF))
}

func TestBackoffDelayCapped(t *testing.T) {
	opts := RetryOptions{BaseDelay: 50 * time.Millisecond, MaxDelay: 120 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, backoffDelay(opts, 1))
	assert.Equal(t, 100*time.Millisecond, backoffDelay(opts, 2))
	assert.Equal(t, 120*time.Millisecond, backoffDelay(opts, 3))
}

func TestRunInTxRollsBackFailedAttempt(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	calls := 0
	err := RunInTx(ctx, repos.DB, fastRetryOptions(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Exec("INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, status, created_at, updated_at) VALUES ('m1','c1','a','b','x',1,1,1)").Error; err != nil {
			return err
		}
		if calls < 2 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// Only the committed attempt's row exists.
	var count int64
	require.NoError(t, repos.DB.Table("messages").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
