// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UnknownCommandError is returned for a well-formed message whose
// discriminator is not one of the five known commands.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Command)
}

// SchemaError is returned when a message cannot be decoded. Command is
// empty when the message is not a JSON object with a string "cmd".
type SchemaError struct {
	Command string
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("malformed message: %v", e.Err)
	}
	return fmt.Sprintf("malformed %s message: %v", e.Command, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// envelope is the first decoding step: only the discriminator.
type envelope struct {
	Command *string `json:"cmd"`
}

type channelJoinedMessage struct {
	States      *[]VoiceUser `json:"states"`
	ChannelName *string      `json:"channelName"`
}

type voiceStateUpdateMessage struct {
	State *VoiceUserPartial `json:"state"`
}

type notificationMessage struct {
	Message *struct {
		Title     *string `json:"title"`
		Body      *string `json:"body"`
		Icon      *string `json:"icon"`
		ChannelID *string `json:"channelId"`
	} `json:"message"`
}

// Parse decodes one text frame into an Event.
func Parse(data []byte) (Event, error) {
	var head envelope
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &SchemaError{Err: err}
	}
	if head.Command == nil {
		return nil, &SchemaError{Err: errors.New(`missing "cmd" field`)}
	}

	command := *head.Command
	event, err := parsePayload(command, data)
	if err != nil {
		var unknown *UnknownCommandError
		if errors.As(err, &unknown) {
			return nil, err
		}
		return nil, &SchemaError{Command: command, Err: err}
	}
	return event, nil
}

func parsePayload(command string, data []byte) (Event, error) {
	switch command {
	case CommandRegisterConfig:
		var registration Registration
		if err := json.Unmarshal(data, &registration); err != nil {
			return nil, err
		}
		return ConfigReceived{Config: registration}, nil

	case CommandChannelJoined:
		var message channelJoinedMessage
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, err
		}
		if message.States == nil {
			return nil, errors.New(`missing "states"`)
		}
		for index, user := range *message.States {
			if user.UserID == "" {
				return nil, fmt.Errorf("states[%d]: missing userId", index)
			}
		}
		name := DefaultChannelName
		if message.ChannelName != nil {
			name = *message.ChannelName
		}
		return ChannelJoined{Users: *message.States, ChannelName: name}, nil

	case CommandChannelLeft:
		return ChannelLeft{}, nil

	case CommandVoiceStateUpdate:
		var message voiceStateUpdateMessage
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, err
		}
		if message.State == nil {
			return nil, errors.New(`missing "state"`)
		}
		if message.State.UserID == "" {
			return nil, errors.New("state: missing userId")
		}
		return VoiceStateUpdate{State: *message.State}, nil

	case CommandMessageNotification:
		var message notificationMessage
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, err
		}
		if message.Message == nil {
			return nil, errors.New(`missing "message"`)
		}
		if message.Message.Title == nil || message.Message.Body == nil {
			return nil, errors.New("message: title and body are required")
		}
		return Notification{Content: NotificationContent{
			Title:     *message.Message.Title,
			Body:      *message.Message.Body,
			Icon:      message.Message.Icon,
			ChannelID: message.Message.ChannelID,
		}}, nil

	default:
		return nil, &UnknownCommandError{Command: command}
	}
}

// Encode renders event in wire form. It is the inverse of Parse and
// is used to drive a server the way the plugin does.
func Encode(event Event) ([]byte, error) {
	var payload any
	switch e := event.(type) {
	case ChannelJoined:
		users := e.Users
		if users == nil {
			users = []VoiceUser{}
		}
		payload = struct {
			Command     string      `json:"cmd"`
			States      []VoiceUser `json:"states"`
			ChannelName string      `json:"channelName"`
		}{CommandChannelJoined, users, e.ChannelName}
	case ChannelLeft:
		payload = struct {
			Command string `json:"cmd"`
		}{CommandChannelLeft}
	case VoiceStateUpdate:
		payload = struct {
			Command string           `json:"cmd"`
			State   VoiceUserPartial `json:"state"`
		}{CommandVoiceStateUpdate, e.State}
	case ConfigReceived:
		payload = struct {
			Command string `json:"cmd"`
			Registration
		}{CommandRegisterConfig, e.Config}
	case Notification:
		payload = struct {
			Command string              `json:"cmd"`
			Message NotificationContent `json:"message"`
		}{CommandMessageNotification, e.Content}
	default:
		return nil, fmt.Errorf("cannot encode event %T", event)
	}
	return json.Marshal(payload)
}
