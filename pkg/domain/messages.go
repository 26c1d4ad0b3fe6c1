package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType tags an inbound cross-context message.
type MessageType string

// Wire values of the message type tags; shared with collaborating documents.
const (
	// MessageSimulationReportGenerated carries a freshly rendered report.
	MessageSimulationReportGenerated MessageType = "vlab:simulation_report_generated"
	// MessageUserInputSubmitted signals the user form was submitted.
	MessageUserInputSubmitted MessageType = "vlab:user_input_submitted"
	// MessageUserInputCancelled signals the user form was dismissed.
	MessageUserInputCancelled MessageType = "vlab:user_input_cancel"
)

// Message is the closed set of inbound cross-context notifications. The
// unexported method keeps the union sealed so dispatchers can match
// exhaustively.
type Message interface {
	Type() MessageType
	sealed()
}

// SimulationReportGenerated notifies that the simulation produced a report.
type SimulationReportGenerated struct {
	HTML      string `json:"html"`
	UpdatedAt string `json:"updatedAt"`
}

// Type returns the message tag.
func (SimulationReportGenerated) Type() MessageType { return MessageSimulationReportGenerated }
func (SimulationReportGenerated) sealed()           {}

// UserInputSubmitted notifies that the user form was submitted.
type UserInputSubmitted struct {
	ReturnURL string `json:"returnUrl"`
}

// Type returns the message tag.
func (UserInputSubmitted) Type() MessageType { return MessageUserInputSubmitted }
func (UserInputSubmitted) sealed()           {}

// UserInputCancelled notifies that the user form was dismissed without submit.
type UserInputCancelled struct{}

// Type returns the message tag.
func (UserInputCancelled) Type() MessageType { return MessageUserInputCancelled }
func (UserInputCancelled) sealed()           {}

// ErrUnknownMessage is returned for messages outside the closed union.
type ErrUnknownMessage struct {
	TypeTag string
}

func (e ErrUnknownMessage) Error() string {
	return fmt.Sprintf("unknown message type %q", e.TypeTag)
}

type messageEnvelope struct {
	Type string `json:"type"`
}

// DecodeMessage parses a raw cross-context payload into its typed variant.
// Payloads without a type tag or with an unknown tag yield ErrUnknownMessage.
func DecodeMessage(raw []byte) (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}
	switch MessageType(env.Type) {
	case MessageSimulationReportGenerated:
		var msg SimulationReportGenerated
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode report message: %w", err)
		}
		return msg, nil
	case MessageUserInputSubmitted:
		var msg UserInputSubmitted
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode submit message: %w", err)
		}
		return msg, nil
	case MessageUserInputCancelled:
		return UserInputCancelled{}, nil
	default:
		return nil, ErrUnknownMessage{TypeTag: env.Type}
	}
}
