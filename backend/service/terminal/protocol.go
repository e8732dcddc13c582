package terminal

import (
	"encoding/json"
	"fmt"

	"termssh/backend/internal/types"
)

// 显示端 -> 桥接
const (
	TypeReady      = "ready"
	TypeInput      = "input"
	TypeResize     = "resize"
	TypeClosePanel = "closePanel"
)

// 桥接 -> 显示端
const (
	TypeOutput    = "output"
	TypeExit      = "exit"
	TypeSetColors = "setColors"
)

// inboundMessage 显示端发来的消息，字段是否必填取决于 Type
type inboundMessage struct {
	Type string  `json:"type"`
	Data *string `json:"data,omitempty"`
	Cols *int    `json:"cols,omitempty"`
	Rows *int    `json:"rows,omitempty"`
}

type OutputMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ExitMessage code 为 null 表示被信号终止或者没有启动成功
type ExitMessage struct {
	Type   string `json:"type"`
	Code   *int   `json:"code"`
	Signal string `json:"signal,omitempty"`
	Error  string `json:"error,omitempty"`
}

type SetColorsMessage struct {
	Type   string               `json:"type"`
	Colors types.TerminalColors `json:"colors"`
}

// ProtocolError 无法识别或缺少字段的消息
type ProtocolError struct {
	Type   string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("protocol violation: %s", e.Reason)
	}
	return fmt.Sprintf("protocol violation (%s): %s", e.Type, e.Reason)
}

// decodeInbound 解析并校验一条消息
func decodeInbound(raw []byte) (inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, &ProtocolError{Reason: fmt.Sprintf("invalid json: %v", err)}
	}

	switch msg.Type {
	case TypeReady, TypeClosePanel:
	case TypeInput:
		if msg.Data == nil {
			return msg, &ProtocolError{msg.Type, "missing data"}
		}
	case TypeResize:
		if msg.Cols == nil || msg.Rows == nil {
			return msg, &ProtocolError{msg.Type, "missing cols/rows"}
		}
		if *msg.Cols <= 0 || *msg.Rows <= 0 || *msg.Cols > 0xFFFF || *msg.Rows > 0xFFFF {
			return msg, &ProtocolError{msg.Type, fmt.Sprintf("invalid size %dx%d", *msg.Cols, *msg.Rows)}
		}
	case "":
		return msg, &ProtocolError{Reason: "missing type"}
	default:
		return msg, &ProtocolError{msg.Type, "unknown message type"}
	}
	return msg, nil
}
