package service

import (
	"context"
	"strings"
	"time"

	"ChatCore/module/chat/model"
	"ChatCore/module/chat/store"
	"ChatCore/tools/errs"
	"ChatCore/tools/ids"
)

// Messages is the append-only message log with cursor pagination.
type Messages struct {
	store    store.Store
	pageSize int
}

func NewMessages(st store.Store, pageSize int) *Messages {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Messages{store: st, pageSize: pageSize}
}

func (m *Messages) PageSize() int { return m.pageSize }

// Append validates and persists a message. Content that trims to empty is
// rejected before anything is written.
func (m *Messages) Append(ctx context.Context, roomID, authorID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.ErrValidation.WrapMsg("You can't send an empty message.")
	}
	msg := &model.Message{
		ID:        ids.GenerateString(),
		RoomID:    roomID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := m.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Page returns one newest-first page (1-indexed) and whether more pages
// remain. A page past the end is not an error: empty items, hasMore=false.
func (m *Messages) Page(ctx context.Context, roomID string, page int) ([]*model.Message, bool, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := m.store.PageMessages(ctx, roomID, page, m.pageSize)
	if err != nil {
		return nil, false, err
	}
	return items, hasMore(page, m.pageSize, total), nil
}

// hasMore reports whether pages past `page` exist for `total` rows.
func hasMore(page, size int, total int64) bool {
	if size <= 0 {
		return false
	}
	totalPages := (total + int64(size) - 1) / int64(size)
	return int64(page) < totalPages
}
