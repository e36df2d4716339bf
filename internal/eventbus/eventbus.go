package eventbus

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
)

type Channel string

const (
	// ClientMessages channels are per-user: client_messages:<uid>.
	ClientMessages Channel = "client_messages"
	// ServerMessages is a single shared channel the coordinator consumes.
	ServerMessages Channel = "server_messages"
)

func (c Channel) buildChannel(userID core.UserID) string {
	return string(c) + ":" + string(userID)
}

// ServerMessage is the envelope for the server-side channel: the websocket
// edge tags each inbound RPC with the authenticated sender.
type ServerMessage struct {
	UserID  core.UserID     `json:"user_id"`
	Message json.RawMessage `json:"rpc"`
}

type Publisher interface {
	PublishClient(userID core.UserID, rpc rpc.Rpc) error
	PublishServer(userID core.UserID, rpc rpc.Rpc) error
}

type Subscriber interface {
	SubscribeClient(userID core.UserID) (RedisBus, error)
	SubscribeServer() (RedisBus, error)
}

// RedisBus abstracts a pub/sub subscription so tests can inject a mock.
type RedisBus interface {
	Channel() <-chan *redis.Message
	Close() error
}

type Subscription struct {
	pubsub *redis.PubSub
}

func (s *Subscription) Channel() <-chan *redis.Message {
	return s.pubsub.Channel()
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

type Eventbus struct {
	rdb *redis.Client
}

// RedisPubSub is factory for building Eventbus based on redis pubsub
func RedisPubSub(rdb *redis.Client) *Eventbus {
	return &Eventbus{rdb: rdb}
}

// PublishClient delivers an event to one user's websocket pump.
func (e *Eventbus) PublishClient(userID core.UserID, r rpc.Rpc) error {
	msg, err := r.ToJSON()
	if err != nil {
		return err
	}
	return e.rdb.Publish(context.Background(), ClientMessages.buildChannel(userID), msg).Err()
}

// PublishServer forwards a client RPC to the coordinator, tagged with the
// sender.
func (e *Eventbus) PublishServer(userID core.UserID, r rpc.Rpc) error {
	raw, err := r.ToJSON()
	if err != nil {
		return err
	}

	msg, err := json.Marshal(ServerMessage{UserID: userID, Message: raw})
	if err != nil {
		return err
	}

	return e.rdb.Publish(context.Background(), string(ServerMessages), msg).Err()
}

func (e *Eventbus) SubscribeClient(userID core.UserID) (RedisBus, error) {
	return e.subscribe(ClientMessages.buildChannel(userID))
}

func (e *Eventbus) SubscribeServer() (RedisBus, error) {
	return e.subscribe(string(ServerMessages))
}

func (e *Eventbus) subscribe(channel string) (RedisBus, error) {
	ctx := context.Background()
	pubsub := e.rdb.Subscribe(ctx, channel)
	// Wait until subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	return &Subscription{pubsub: pubsub}, nil
}
