package rpc

import (
	"encoding/json"

	"github.com/battala/voicemesh/internal/core"
)

type LinkOutcome string

const (
	LinkConnected LinkOutcome = "connected"
	LinkFailed    LinkOutcome = "failed"
)

// LinkStateParams reports the sender's view of one peer link. Negotiation
// failure is owned by the peers; this is bookkeeping, not control.
type LinkStateParams struct {
	Target core.UserID `json:"target"`
	State  LinkOutcome `json:"state"`
}

type LinkStateRpc struct {
	jsonRpcHead
	Params LinkStateParams `json:"params"`
}

func NewLinkStateRpc(params LinkStateParams) *LinkStateRpc {
	return &LinkStateRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  LinkStateMethod,
		},
		Params: params,
	}
}

func (r LinkStateRpc) GetMethod() Method {
	return r.Method
}

func (r LinkStateRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
