// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err      error
	Endpoint string
	Method   string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.Endpoint, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, endpoint, method string) error {
	return &Error{
		Err:      err,
		Endpoint: endpoint,
		Method:   method,
	}
}

// IsAccountNotFound проверяет, является ли ошибка "not found"
func IsAccountNotFound(err error) bool {
	return errors.Is(err, blockchain.ErrAccountNotFound)
}
