package models

// MessageKind tags where a round message came from.
type MessageKind string

const (
	MessageAbsent       MessageKind = "absent"
	MessageFromSelf     MessageKind = "from_self"
	MessageFromOpponent MessageKind = "from_opponent"
)

// Message is the exchanged signal of a message round. The zero value is Absent.
type Message struct {
	Kind     MessageKind `json:"kind"`
	SenderID string      `json:"sender_id,omitempty"`
	Content  string      `json:"content,omitempty"`
}

func AbsentMessage() Message {
	return Message{Kind: MessageAbsent}
}

func (m Message) IsAbsent() bool {
	return m.Kind == "" || m.Kind == MessageAbsent
}

func (m Message) IsFromOpponent() bool {
	return m.Kind == MessageFromOpponent
}
