package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/letscook/internal/storage"
)

func TestGormLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newGormLogger(zap.New(core), logger.Warn)

	ctx := context.Background()
	l.Info(ctx, "hidden %d", 1)
	l.Warn(ctx, "shown %d", 2)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown 2", logs.All()[0].Message)

	sql := func() (string, int64) { return "SELECT 1", 1 }
	l.Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 1, logs.Len(), "successful trace below info is dropped")

	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())

	silent := l.LogMode(logger.Silent)
	silent.Trace(ctx, time.Now(), sql, errors.New("boom"))
	silent.Error(ctx, "nope")
	assert.Equal(t, 2, logs.Len())

	verbose := l.LogMode(logger.Info)
	verbose.Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 3, logs.Len())
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(gorm.ErrRecordNotFound), storage.ErrNotFound)
	other := errors.New("other")
	assert.Equal(t, other, notFound(other))
}
