package models

import "time"

// Message represents a direct message between the admin and a user.
// Bodies are persisted encrypted only; Body carries the decrypted plaintext
// on the wire and is never written to the database.
type Message struct {
	ID            string    `db:"id" json:"id"`
	Sender        string    `db:"sender" json:"sender"`
	Receiver      string    `db:"receiver" json:"receiver"`
	EncryptedBody string    `db:"encrypted_body" json:"-"`
	Body          string    `db:"-" json:"message"`
	Timestamp     time.Time `db:"created_at" json:"timestamp"`
}

// Event is the envelope exchanged over websocket connections.
type Event struct {
	Type      string   `json:"type"`
	Email     string   `json:"email,omitempty"`
	Sender    string   `json:"sender,omitempty"`
	Receiver  string   `json:"receiver,omitempty"`
	Body      string   `json:"message,omitempty"`
	Message   *Message `json:"payload,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
}

// Websocket event types, client->server and server->client.
const (
	EventJoin           = "join"
	EventSendMessage    = "send_message"
	EventDeleteMessage  = "delete_message"
	EventReceiveMessage = "receive_message"
	EventMessageDeleted = "message_deleted"
)
