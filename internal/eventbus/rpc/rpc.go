package rpc

import (
	"encoding/json"
	"errors"
	"io"
)

const jsonRpcVersion = "2.0"

type Method string

// Methods a client may send. Server-emitted events live in
// server_events.go and are never parsed back.
const (
	JoinMethod         Method = "join"
	LeaveMethod        Method = "leave"
	SDPOfferMethod     Method = "offer"
	SDPAnswerMethod    Method = "answer"
	ICECandidateMethod Method = "iceCandidate"
	VoiceStateMethod   Method = "voiceState"
	SpeakingMethod     Method = "speaking"
	LinkStateMethod    Method = "linkState"
)

var (
	ErrUnknownRpcType = errors.New("unknown RPC type")
	ErrMalformedRpc   = errors.New("malformed RPC")
)

type Rpc interface {
	GetMethod() Method
	ToJSON() ([]byte, error)
}

type jsonRpcHead struct {
	Version string `json:"jsonrpc"`
	Method  Method `json:"method"`
}

type jsonRpc struct {
	jsonRpcHead
	Params map[string]interface{} `json:"params"`
}

// FromReader parses a client-sent RPC. Unknown methods are rejected so the
// server-side bus never carries arbitrary payloads.
func FromReader(reader io.Reader) (Rpc, error) {
	rpc := &jsonRpc{}

	if err := json.NewDecoder(reader).Decode(rpc); err != nil {
		return nil, err
	}

	params, err := json.Marshal(rpc.Params)
	if err != nil {
		return nil, err
	}

	switch rpc.Method {
	case JoinMethod:
		p := JoinParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewJoinRpc(p.ChannelID), nil
	case LeaveMethod:
		return NewLeaveRpc(), nil
	case SDPOfferMethod:
		p := SDPParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewSDPOfferRpc(p), nil
	case SDPAnswerMethod:
		p := SDPParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewSDPAnswerRpc(p), nil
	case ICECandidateMethod:
		p := ICECandidateParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewICECandidateRpc(p), nil
	case VoiceStateMethod:
		p := VoiceStateParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewVoiceStateRpc(p), nil
	case SpeakingMethod:
		p := SpeakingParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewSpeakingRpc(p.Speaking), nil
	case LinkStateMethod:
		p := LinkStateParams{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}

		return NewLinkStateRpc(p), nil
	default:
		return nil, ErrUnknownRpcType
	}
}
