package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"messenger/internal/pkg/req"
)

// Inbound event names accepted from clients.
const (
	InRegisterUser = "registerUser"
	InJoinRoom     = "joinRoom"
	InSendMessage  = "sendMessage"
	InStartTyping  = "startTyping"
	InStopTyping   = "stopTyping"
	InCallUser     = "callUser"
	InAnswerCall   = "answerCall"
)

var (
	errUnknownEvent     = errors.New("unknown event")
	errMalformedPayload = errors.New("malformed payload")
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// command is one decoded client event. Every kind carries its own handler, so the
// set of inbound kinds and their handling cannot drift apart.
type command interface {
	apply(c *Client)
}

type registerUserCmd struct {
	UserID string `validate:"required,max=64"`
}

type joinRoomCmd struct {
	Room string `validate:"required,max=128"`
}

type sendMessageCmd struct {
	Room string `json:"room" validate:"required,max=128"`

	raw json.RawMessage
}

type typingCmd struct {
	ChatID string          `json:"chatId" validate:"required,max=128"`
	User   json.RawMessage `json:"user"`

	stop bool
}

type callUserCmd struct {
	UserToCall string          `json:"userToCall" validate:"required"`
	SignalData json.RawMessage `json:"signalData" validate:"required"`
}

type answerCallCmd struct {
	To     string          `json:"to" validate:"required"`
	Signal json.RawMessage `json:"signal" validate:"required"`
}

// decodeCommand parses one client frame into its typed command.
// Unknown events and payloads that fail validation are reported as errors so the
// caller can drop them.
func decodeCommand(raw []byte) (command, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}

	var (
		cmd command
		err error
	)

	switch frame.Event {
	case InRegisterUser:
		c := &registerUserCmd{}
		err = json.Unmarshal(frame.Data, &c.UserID)
		cmd = c

	case InJoinRoom:
		c := &joinRoomCmd{}
		err = json.Unmarshal(frame.Data, &c.Room)
		cmd = c

	case InSendMessage:
		c := &sendMessageCmd{raw: frame.Data}
		err = json.Unmarshal(frame.Data, c)
		cmd = c

	case InStartTyping, InStopTyping:
		c := &typingCmd{stop: frame.Event == InStopTyping}
		err = json.Unmarshal(frame.Data, c)
		cmd = c

	case InCallUser:
		c := &callUserCmd{}
		err = json.Unmarshal(frame.Data, c)
		cmd = c

	case InAnswerCall:
		c := &answerCallCmd{}
		err = json.Unmarshal(frame.Data, c)
		cmd = c

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEvent, frame.Event)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errMalformedPayload, frame.Event, err)
	}

	if verr := req.Validator().Struct(cmd); verr != nil {
		return nil, fmt.Errorf("%w: %s: %v", errMalformedPayload, frame.Event, verr)
	}

	return cmd, nil
}
