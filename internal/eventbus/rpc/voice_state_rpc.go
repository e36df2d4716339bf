package rpc

import "encoding/json"

// VoiceStateParams is a full self-report of the sender's flags.
type VoiceStateParams struct {
	IsMuted         bool `json:"is_muted"`
	IsDeafened      bool `json:"is_deafened"`
	IsScreenSharing bool `json:"is_screen_sharing"`
}

type VoiceStateRpc struct {
	jsonRpcHead
	Params VoiceStateParams `json:"params"`
}

func NewVoiceStateRpc(params VoiceStateParams) *VoiceStateRpc {
	return &VoiceStateRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  VoiceStateMethod,
		},
		Params: params,
	}
}

func (r VoiceStateRpc) GetMethod() Method {
	return r.Method
}

func (r VoiceStateRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type SpeakingParams struct {
	Speaking bool `json:"speaking"`
}

// SpeakingRpc is high-frequency and best-effort: a lost update is corrected
// by the next edge transition.
type SpeakingRpc struct {
	jsonRpcHead
	Params SpeakingParams `json:"params"`
}

func NewSpeakingRpc(speaking bool) *SpeakingRpc {
	return &SpeakingRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  SpeakingMethod,
		},
		Params: SpeakingParams{Speaking: speaking},
	}
}

func (r SpeakingRpc) GetMethod() Method {
	return r.Method
}

func (r SpeakingRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
