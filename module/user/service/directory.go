package service

import (
	"context"
	"strings"
	"time"

	"ChatCore/module/user/model"
	"ChatCore/module/user/store"
	"ChatCore/tools/errs"
	"ChatCore/tools/ids"
)

// Directory is the thin lookup facade over the account directory. Pure
// queries plus the dev-mode register used by the token endpoint.
type Directory struct {
	accounts store.AccountStore
}

func NewDirectory(accounts store.AccountStore) *Directory {
	return &Directory{accounts: accounts}
}

func (d *Directory) Get(ctx context.Context, id string) (*model.Account, error) {
	a, err := d.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errs.ErrNotFound.WrapMsg("account " + id)
	}
	return a, nil
}

func (d *Directory) Search(ctx context.Context, query string) ([]*model.Account, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return d.accounts.SearchAccounts(ctx, query)
}

// GetOrRegister finds an account by username, creating it when absent.
func (d *Directory) GetOrRegister(ctx context.Context, username string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.ErrValidation.WrapMsg("username is required")
	}
	if a, err := d.accounts.FindAccountByUsername(ctx, username); err != nil || a != nil {
		return a, err
	}
	a := &model.Account{
		ID:           ids.GenerateString(),
		Username:     username,
		ProfileImage: "/media/default.png",
		CreateTime:   time.Now(),
	}
	if err := d.accounts.InsertAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
