package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the raw payload next to the type.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// --- Client-to-Server message payloads ---

// AuthMsg carries a JWT from the auth service.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// StartMsg starts a session. Name is optional when authenticated.
type StartMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// RevealMsg asks to reveal the card at Index.
type RevealMsg struct {
	Type  string `json:"type"`
	Index *int   `json:"index"`
}

// ShuffleMsg starts a new round in the current session.
type ShuffleMsg struct {
	Type string `json:"type"`
}

// --- Server-to-Client messages ---

// ErrorMsg reports a client error.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AuthOKMsg confirms a valid token.
type AuthOKMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// SessionStartedMsg is sent once per session, before the first game_state.
type SessionStartedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Pairs     int    `json:"pairs"`
	Cards     int    `json:"cards"`
}
