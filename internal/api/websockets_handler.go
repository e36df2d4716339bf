package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/isqad/melody"
	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
)

const (
	wsSubscriptionSessionKey = "subscription"
	wsUserIDSessionKey       = "userId"
)

func WebsocketsHandler(
	eventsSubscriber eventbus.Subscriber,
	websocket *melody.Melody,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := extractUserID(r)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("can't get the user from request context")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		subscription, err := eventsSubscriber.SubscribeClient(userID)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("can't subscribe the user to signaling channel")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		sessKeys := make(map[string]interface{})
		sessKeys[wsUserIDSessionKey] = userID
		sessKeys[wsSubscriptionSessionKey] = subscription

		if err := websocket.HandleRequestWithKeys(w, r, sessKeys); err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("can't handle request")
		}
	}
}

// ConnectHandler pumps the user's client channel into the websocket.
func ConnectHandler() func(session *melody.Session) {
	return func(session *melody.Session) {
		subscription, err := getUserSubscription(session)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("extract subscription")
			session.Close()
			return
		}

		go func() {
			for msg := range subscription.Channel() {
				if err := session.Write([]byte(msg.Payload)); err != nil {
					// there's only session closed error can be
					log.Error().Err(err).Str("service", "websockets").Msg("")
					return
				}
			}
		}()
	}
}

// DisconnectHandler ends the voice session on connection loss: a vanished
// socket is a leave.
func DisconnectHandler(eventsPublisher eventbus.Publisher) func(session *melody.Session) {
	return func(session *melody.Session) {
		userID, err := getUserIDFromSession(session)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("extract userID")
			return
		}

		if subscription, err := getUserSubscription(session); err == nil {
			if err := subscription.Close(); err != nil {
				log.Error().Err(err).Str("service", "websockets").Msg("close subscription")
			}
		}

		if err := eventsPublisher.PublishServer(userID, rpc.NewLeaveRpc()); err != nil {
			log.Error().Err(err).Str("service", "websockets").Str("userID", string(userID)).Msg("publish leave")
		}
	}
}

// HandleMessage validates the inbound RPC and forwards it to the
// coordinator, tagged with the authenticated sender.
func HandleMessage(eventsPublisher eventbus.Publisher) func(s *melody.Session, msg []byte) {
	return func(s *melody.Session, msg []byte) {
		userID, err := getUserIDFromSession(s)
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Msg("extract userID")
			s.Close()
			return
		}

		r, err := rpc.FromReader(bytes.NewReader(msg))
		if err != nil {
			log.Error().Err(err).Str("service", "websockets").Str("userID", string(userID)).Msg("rpc parse")
			return
		}

		if err := eventsPublisher.PublishServer(userID, r); err != nil {
			log.Error().Err(err).Str("service", "websockets").Str("userID", string(userID)).Msg("publish server rpc")
		}
	}
}

func getUserSubscription(s *melody.Session) (eventbus.RedisBus, error) {
	userSub, ok := s.Keys[wsSubscriptionSessionKey]
	if !ok {
		return nil, fmt.Errorf("no sub for given session: %+v", s)
	}
	subscription, ok := userSub.(eventbus.RedisBus)
	if !ok {
		return nil, fmt.Errorf("can't convert userSub: %+v", userSub)
	}
	return subscription, nil
}

func getUserIDFromSession(s *melody.Session) (core.UserID, error) {
	userID, ok := s.Keys[wsUserIDSessionKey]
	if !ok {
		return "", fmt.Errorf("no user for given session: %+v", s)
	}
	id, ok := userID.(core.UserID)
	if !ok {
		return "", fmt.Errorf("can't convert userID: %+v", userID)
	}
	return id, nil
}
