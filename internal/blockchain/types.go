// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Reader определяет операции чтения аккаунтов.
type Reader interface {
	// GetAccount returns ErrAccountNotFound when nothing lives at address.
	GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error)
	// GetMultipleAccounts keeps input order; missing accounts are nil.
	GetMultipleAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*Account, error)
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...Filter) ([]*Account, error)
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)
}

// Sender определяет операции, нужные для отправки транзакции.
type Sender interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// RecentPrioritizationFees returns per-slot micro-lamport prices paid by
	// transactions that locked the given accounts.
	RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error)
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	Reader
	Sender
}

// AccountSubscription delivers account changes until closed.
type AccountSubscription interface {
	Recv(ctx context.Context) (*Account, error)
	Close()
}

// SignatureSubscription delivers one status for a signature.
type SignatureSubscription interface {
	Recv(ctx context.Context) (*SignatureStatus, error)
	Close()
}

// Feed opens change-notification subscriptions.
type Feed interface {
	SubscribeAccount(ctx context.Context, address solana.PublicKey) (AccountSubscription, error)
	SubscribeSignature(ctx context.Context, sig solana.Signature) (SignatureSubscription, error)
}
