package rpc

import (
	"encoding/json"

	"github.com/battala/voicemesh/internal/core"
	"github.com/pion/webrtc/v3"
)

// SDPParams is a negotiation payload addressed to one peer. The relay fills
// From before forwarding; the SDP body is never inspected.
type SDPParams struct {
	webrtc.SessionDescription
	Target core.UserID `json:"target"`
	From   core.UserID `json:"from,omitempty"`
}

type SDPRpc struct {
	jsonRpcHead
	Params SDPParams `json:"params"`
}

func NewSDPOfferRpc(params SDPParams) *SDPRpc {
	return &SDPRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  SDPOfferMethod,
		},
		Params: params,
	}
}

func NewSDPAnswerRpc(params SDPParams) *SDPRpc {
	return &SDPRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  SDPAnswerMethod,
		},
		Params: params,
	}
}

func (r SDPRpc) GetMethod() Method {
	return r.Method
}

func (r SDPRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
