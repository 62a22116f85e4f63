package chat

import (
	"context"

	"ChatCore/tools/errs"
)

// HandlerFunc processes one decoded command for a session.
type HandlerFunc func(ctx context.Context, sess *Session, fields map[string]any) error

type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(command string, h HandlerFunc) {
	d.handlers[command] = h
}

// Dispatch routes a command to its handler. Unknown commands are a domain
// error, not a connection fault.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, cmd *Command) error {
	h, ok := d.handlers[cmd.Name]
	if !ok {
		return errs.ErrValidation.WrapMsg("unknown command: " + cmd.Name)
	}
	return h(ctx, sess, cmd.Fields)
}
