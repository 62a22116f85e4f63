package store

import (
	"context"

	"ChatCore/module/user/model"
)

// AccountStore is the directory surface the chat core reads identities from.
// Lookups return (nil, nil) when nothing matches.
type AccountStore interface {
	InsertAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	SearchAccounts(ctx context.Context, query string) ([]*model.Account, error)
}
