package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ChatCore/module/user/model"
)

type Mem struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
}

func NewMem() *Mem {
	return &Mem{accounts: make(map[string]*model.Account)}
}

func (s *Mem) InsertAccount(ctx context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Mem) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *Mem) FindAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Mem) SearchAccounts(ctx context.Context, query string) ([]*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var out []*model.Account
	for _, a := range s.accounts {
		if strings.Contains(strings.ToLower(a.Username), q) ||
			strings.Contains(strings.ToLower(a.Email), q) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

var _ AccountStore = (*Mem)(nil)
