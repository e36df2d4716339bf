package rpc

import (
	"encoding/json"

	"github.com/battala/voicemesh/internal/core"
)

type JoinParams struct {
	ChannelID core.ChannelID `json:"channel_id"`
}

type JoinRpc struct {
	jsonRpcHead
	Params JoinParams `json:"params"`
}

func NewJoinRpc(channelID core.ChannelID) *JoinRpc {
	return &JoinRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  JoinMethod,
		},
		Params: JoinParams{ChannelID: channelID},
	}
}

func (r JoinRpc) GetMethod() Method {
	return r.Method
}

func (r JoinRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type LeaveRpc struct {
	jsonRpcHead
	Params interface{} `json:"params"`
}

func NewLeaveRpc() *LeaveRpc {
	return &LeaveRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  LeaveMethod,
		},
		Params: nil,
	}
}

func (r LeaveRpc) GetMethod() Method {
	return r.Method
}

func (r LeaveRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
