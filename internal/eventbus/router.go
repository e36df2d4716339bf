package eventbus

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
)

var (
	errConvertOffer        = errors.New("can't convert to offer")
	errConvertAnswer       = errors.New("can't convert to answer")
	errConvertIceCandidate = errors.New("can't convert to ice candidate")
	errConvertJoin         = errors.New("can't convert to join")
	errConvertVoiceState   = errors.New("can't convert to voice state")
	errConvertSpeaking     = errors.New("can't convert to speaking")
	errConvertLinkState    = errors.New("can't convert to link state")
	errUndefinedMethod     = errors.New("undefined method")
)

// Router subscribes to the server-side channel and dispatches each inbound
// RPC to the coordinator callback registered for its method.
type Router struct {
	EventsSubscriber Subscriber
	subscription     RedisBus
	done             chan struct{}

	onJoin            func(core.UserID, core.ChannelID) error
	onLeave           func(core.UserID) error
	onOffer           func(core.UserID, rpc.SDPParams) error
	onAnswer          func(core.UserID, rpc.SDPParams) error
	onAddICECandidate func(core.UserID, rpc.ICECandidateParams) error
	onVoiceState      func(core.UserID, rpc.VoiceStateParams) error
	onSpeaking        func(core.UserID, bool) error
	onLinkState       func(core.UserID, rpc.LinkStateParams) error
}

func NewRouter(sub Subscriber) (*Router, error) {
	router := &Router{
		EventsSubscriber: sub,
		done:             make(chan struct{}),
	}
	subscription, err := router.EventsSubscriber.SubscribeServer()
	if err != nil {
		return nil, err
	}
	router.subscription = subscription

	return router, nil
}

// Start consumes the subscription in a background goroutine. The returned
// channel closes once the loop is running.
func (router *Router) Start() <-chan struct{} {
	log.Debug().Str("service", "router").Msg("start")

	ready := make(chan struct{})

	go func() {
		channel := router.subscription.Channel()
		close(ready)

		for msg := range channel {
			userID, r, err := parseRpc(msg.Payload)
			if err != nil {
				log.Error().Err(err).Str("service", "router").Msg("")
				continue
			}

			router.dispatch(userID, r)
		}

		close(router.done)
	}()

	return ready
}

// Stop closes the subscription; the returned channel closes when the
// dispatch loop has drained.
func (router *Router) Stop() <-chan struct{} {
	log.Debug().Str("service", "router").Msg("stop")

	if err := router.subscription.Close(); err != nil {
		log.Error().Err(err).Str("service", "router").Msg("close subscription")
	}

	return router.done
}

func (router *Router) dispatch(userID core.UserID, r rpc.Rpc) {
	switch r.GetMethod() {
	case rpc.JoinMethod:
		msg, ok := r.(*rpc.JoinRpc)
		if !ok {
			log.Error().Err(errConvertJoin).Str("service", "router").Msg("")
			return
		}

		if err := router.onJoin(userID, msg.Params.ChannelID); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onJoin")
		}
	case rpc.LeaveMethod:
		if err := router.onLeave(userID); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onLeave")
		}
	case rpc.SDPOfferMethod:
		msg, ok := r.(*rpc.SDPRpc)
		if !ok {
			log.Error().Err(errConvertOffer).Str("service", "router").Msg("")
			return
		}

		if err := router.onOffer(userID, msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onOffer")
		}
	case rpc.SDPAnswerMethod:
		msg, ok := r.(*rpc.SDPRpc)
		if !ok {
			log.Error().Err(errConvertAnswer).Str("service", "router").Msg("")
			return
		}

		if err := router.onAnswer(userID, msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onAnswer")
		}
	case rpc.ICECandidateMethod:
		msg, ok := r.(*rpc.ICECandidateRpc)
		if !ok {
			log.Error().Err(errConvertIceCandidate).Str("service", "router").Msg("")
			return
		}

		if err := router.onAddICECandidate(userID, msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error add ice candidate")
		}
	case rpc.VoiceStateMethod:
		msg, ok := r.(*rpc.VoiceStateRpc)
		if !ok {
			log.Error().Err(errConvertVoiceState).Str("service", "router").Msg("")
			return
		}

		if err := router.onVoiceState(userID, msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onVoiceState")
		}
	case rpc.SpeakingMethod:
		msg, ok := r.(*rpc.SpeakingRpc)
		if !ok {
			log.Error().Err(errConvertSpeaking).Str("service", "router").Msg("")
			return
		}

		if err := router.onSpeaking(userID, msg.Params.Speaking); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onSpeaking")
		}
	case rpc.LinkStateMethod:
		msg, ok := r.(*rpc.LinkStateRpc)
		if !ok {
			log.Error().Err(errConvertLinkState).Str("service", "router").Msg("")
			return
		}

		if err := router.onLinkState(userID, msg.Params); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("error occured in onLinkState")
		}
	default:
		log.Error().Err(errUndefinedMethod).Str("rpcMethod", string(r.GetMethod())).Str("service", "router").Msg("")
	}
}

func parseRpc(payload string) (core.UserID, rpc.Rpc, error) {
	serverMessage := &ServerMessage{}
	if err := json.Unmarshal([]byte(payload), serverMessage); err != nil {
		return "", nil, err
	}

	if serverMessage.UserID == "" {
		return "", nil, errors.New("can't get user id")
	}

	r, err := rpc.FromReader(bytes.NewReader(serverMessage.Message))
	if err != nil {
		return "", nil, err
	}

	return serverMessage.UserID, r, nil
}

func (router *Router) OnJoin(callback func(core.UserID, core.ChannelID) error) {
	router.onJoin = callback
}

func (router *Router) OnLeave(callback func(core.UserID) error) {
	router.onLeave = callback
}

func (router *Router) OnOffer(callback func(core.UserID, rpc.SDPParams) error) {
	router.onOffer = callback
}

func (router *Router) OnAnswer(callback func(core.UserID, rpc.SDPParams) error) {
	router.onAnswer = callback
}

func (router *Router) OnAddICECandidate(callback func(core.UserID, rpc.ICECandidateParams) error) {
	router.onAddICECandidate = callback
}

func (router *Router) OnVoiceState(callback func(core.UserID, rpc.VoiceStateParams) error) {
	router.onVoiceState = callback
}

func (router *Router) OnSpeaking(callback func(core.UserID, bool) error) {
	router.onSpeaking = callback
}

func (router *Router) OnLinkState(callback func(core.UserID, rpc.LinkStateParams) error) {
	router.onLinkState = callback
}
