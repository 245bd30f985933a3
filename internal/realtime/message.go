package realtime

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Envelope 客户端上行消息
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

// flexibleID 兼容字符串与数字形式的编号
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type joinCartPayload struct {
	TableID flexibleID `json:"tableId"`
	UserID  flexibleID `json:"userId"`
}

type leaveCartPayload struct {
	TableID flexibleID `json:"tableId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type cartSubscribedPayload struct {
	TableID        string `json:"tableId"`
	Message        string `json:"message"`
	ClientsInTable int    `json:"clientsInTable"`
}

type userJoinedPayload struct {
	UserID      string `json:"userId,omitempty"`
	ClientCount int    `json:"clientCount"`
}

type userLeftPayload struct {
	ClientCount int `json:"clientCount"`
}

type pongPayload struct {
	Pong int64 `json:"pong"`
}

type cartUpdatedPayload struct {
	Cart      json.RawMessage `json:"cart"`
	Timestamp string          `json:"timestamp"`
}
