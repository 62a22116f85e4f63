package chat

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"ChatCore/logger"
	"ChatCore/service/natsx"
)

const relaySubjectPrefix = "chatcore.room."

// relayEnvelope carries one room broadcast between gateway nodes. Origin
// lets a node skip frames it published itself.
type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Group   string          `json:"group"`
	Payload json.RawMessage `json:"payload"`
}

// Relay mirrors room broadcasts across gateway nodes over core NATS. Each
// node subscribes to the full room subject space and fans incoming frames
// out to its local group members only; consuming never re-publishes.
type Relay struct {
	client    *natsx.Client
	connMgr   *ConnManager
	fanout    *Fanout
	gatewayID string
	sub       *nats.Subscription
}

func NewRelay(client *natsx.Client, connMgr *ConnManager, fanout *Fanout) *Relay {
	return &Relay{
		client:    client,
		connMgr:   connMgr,
		fanout:    fanout,
		gatewayID: connMgr.GatewayID(),
	}
}

// Start subscribes to every room subject.
func (r *Relay) Start() error {
	sub, err := r.client.Subscribe(relaySubjectPrefix+">", r.consume)
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *Relay) Stop() {
	if r.sub != nil {
		_ = r.sub.Drain()
	}
}

// Publish ships a room broadcast to peer nodes.
func (r *Relay) Publish(group string, payload []byte) {
	env := relayEnvelope{Origin: r.gatewayID, Group: group, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := r.client.Publish(relaySubjectPrefix+group, data); err != nil {
		logger.Warnf("[relay] publish failed group=%s err=%v", group, err)
	}
}

func (r *Relay) consume(subject string, data []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Warnf("[relay] bad envelope on %s: %v", subject, err)
		return
	}
	if env.Origin == r.gatewayID {
		return
	}
	group := env.Group
	if group == "" {
		group = strings.TrimPrefix(subject, relaySubjectPrefix)
	}
	r.fanout.Broadcast(r.connMgr.GroupClients(group), env.Payload)
}
