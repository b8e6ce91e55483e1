// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/letscook/internal/storage/models"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("record not found")

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// История действий
	SaveAction(ctx context.Context, action *models.Action) error
	GetAction(ctx context.Context, signature string) (*models.Action, error)
	ListActions(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Action, error)
	UpdateActionStatus(ctx context.Context, signature, status, errorMsg string, executionTime time.Duration) error

	// Пулы
	SavePoolSnapshot(ctx context.Context, snapshot *models.PoolSnapshot) error
	LatestPoolSnapshot(ctx context.Context, poolID string) (*models.PoolSnapshot, error)

	RunMigrations() error
	Close() error
}
