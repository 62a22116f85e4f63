package natsx

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Config holds connection options for the gateway's NATS client.
type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Client is a thin wrapper over a core NATS connection. Room fanout uses
// plain publish/subscribe; delivery to absent nodes does not need to be
// durable because history lives in the message store.
type Client struct {
	nc *nats.Conn
}

func Connect(cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Subscribe registers a handler for a subject pattern. Every node gets its
// own copy of each message (no queue group), which is what room fanout wants.
func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(m *nats.Msg) {
		handler(m.Subject, m.Data)
	})
}

func (c *Client) Close() error {
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}
