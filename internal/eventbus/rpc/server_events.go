package rpc

import (
	"encoding/json"

	"github.com/battala/voicemesh/internal/config"
	"github.com/battala/voicemesh/internal/core"
)

// Events emitted by the coordinator. Clients never send these.
const (
	RoomJoinedEvent        Method = "room_joined"
	UserJoinedEvent        Method = "user_joined"
	UserLeftEvent          Method = "user_left"
	VoiceStateChangedEvent Method = "voice_state_changed"
	SpeakingChangedEvent   Method = "speaking_changed"
	ServerMuteEvent        Method = "server_mute"
	ServerDeafenEvent      Method = "server_deafen"
	ForceDisconnectedEvent Method = "force_disconnected"
	ErrorEvent             Method = "error"
)

// DisconnectReason distinguishes a moderator disconnect from a kick in the
// push delivered to the target.
type DisconnectReason string

const (
	ReasonDisconnected DisconnectReason = "disconnected"
	ReasonKicked       DisconnectReason = "kicked"
)

// RoomJoinedParams bootstraps the newcomer: who is already in the room
// (they will be offering shortly) and the ICE servers to negotiate with.
type RoomJoinedParams struct {
	ChannelID  core.ChannelID       `json:"channel_id"`
	Occupants  []*core.VoiceSession `json:"occupants"`
	ICEServers []config.ICEServer   `json:"ice_servers"`
}

type RoomJoinedRpc struct {
	jsonRpcHead
	Params RoomJoinedParams `json:"params"`
}

func NewRoomJoinedRpc(params RoomJoinedParams) *RoomJoinedRpc {
	return &RoomJoinedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  RoomJoinedEvent,
		},
		Params: params,
	}
}

func (r RoomJoinedRpc) GetMethod() Method {
	return r.Method
}

func (r RoomJoinedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type UserJoinedRpc struct {
	jsonRpcHead
	Params *core.VoiceSession `json:"params"`
}

func NewUserJoinedRpc(session *core.VoiceSession) *UserJoinedRpc {
	return &UserJoinedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  UserJoinedEvent,
		},
		Params: session,
	}
}

func (r UserJoinedRpc) GetMethod() Method {
	return r.Method
}

func (r UserJoinedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type UserLeftParams struct {
	UserID    core.UserID    `json:"user_id"`
	ChannelID core.ChannelID `json:"channel_id"`
}

type UserLeftRpc struct {
	jsonRpcHead
	Params UserLeftParams `json:"params"`
}

func NewUserLeftRpc(userID core.UserID, channelID core.ChannelID) *UserLeftRpc {
	return &UserLeftRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  UserLeftEvent,
		},
		Params: UserLeftParams{UserID: userID, ChannelID: channelID},
	}
}

func (r UserLeftRpc) GetMethod() Method {
	return r.Method
}

func (r UserLeftRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type VoiceStateChangedParams struct {
	UserID    core.UserID     `json:"user_id"`
	ChannelID core.ChannelID  `json:"channel_id"`
	State     core.VoiceState `json:"state"`
}

type VoiceStateChangedRpc struct {
	jsonRpcHead
	Params VoiceStateChangedParams `json:"params"`
}

func NewVoiceStateChangedRpc(userID core.UserID, channelID core.ChannelID, state core.VoiceState) *VoiceStateChangedRpc {
	return &VoiceStateChangedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  VoiceStateChangedEvent,
		},
		Params: VoiceStateChangedParams{UserID: userID, ChannelID: channelID, State: state},
	}
}

func (r VoiceStateChangedRpc) GetMethod() Method {
	return r.Method
}

func (r VoiceStateChangedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type SpeakingChangedParams struct {
	UserID   core.UserID `json:"user_id"`
	Speaking bool        `json:"speaking"`
}

type SpeakingChangedRpc struct {
	jsonRpcHead
	Params SpeakingChangedParams `json:"params"`
}

func NewSpeakingChangedRpc(userID core.UserID, speaking bool) *SpeakingChangedRpc {
	return &SpeakingChangedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  SpeakingChangedEvent,
		},
		Params: SpeakingChangedParams{UserID: userID, Speaking: speaking},
	}
}

func (r SpeakingChangedRpc) GetMethod() Method {
	return r.Method
}

func (r SpeakingChangedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ForcedFlagParams carries a moderation override the target must apply
// locally, overriding its own toggle.
type ForcedFlagParams struct {
	Value bool `json:"value"`
}

type ServerMuteRpc struct {
	jsonRpcHead
	Params ForcedFlagParams `json:"params"`
}

func NewServerMuteRpc(value bool) *ServerMuteRpc {
	return &ServerMuteRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ServerMuteEvent,
		},
		Params: ForcedFlagParams{Value: value},
	}
}

func (r ServerMuteRpc) GetMethod() Method {
	return r.Method
}

func (r ServerMuteRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ServerDeafenRpc struct {
	jsonRpcHead
	Params ForcedFlagParams `json:"params"`
}

func NewServerDeafenRpc(value bool) *ServerDeafenRpc {
	return &ServerDeafenRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ServerDeafenEvent,
		},
		Params: ForcedFlagParams{Value: value},
	}
}

func (r ServerDeafenRpc) GetMethod() Method {
	return r.Method
}

func (r ServerDeafenRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ForceDisconnectedParams struct {
	ChannelID core.ChannelID   `json:"channel_id"`
	Reason    DisconnectReason `json:"reason"`
}

// ForceDisconnectedRpc is pushed to the target itself, distinct from the
// user_left broadcast its peers receive: the target tears down proactively.
type ForceDisconnectedRpc struct {
	jsonRpcHead
	Params ForceDisconnectedParams `json:"params"`
}

func NewForceDisconnectedRpc(channelID core.ChannelID, reason DisconnectReason) *ForceDisconnectedRpc {
	return &ForceDisconnectedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ForceDisconnectedEvent,
		},
		Params: ForceDisconnectedParams{ChannelID: channelID, Reason: reason},
	}
}

func (r ForceDisconnectedRpc) GetMethod() Method {
	return r.Method
}

func (r ForceDisconnectedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ErrorParams struct {
	Message string `json:"message"`
}

type ErrorRpc struct {
	jsonRpcHead
	Params ErrorParams `json:"params"`
}

func NewErrorRpc(message string) *ErrorRpc {
	return &ErrorRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ErrorEvent,
		},
		Params: ErrorParams{Message: message},
	}
}

func (r ErrorRpc) GetMethod() Method {
	return r.Method
}

func (r ErrorRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
