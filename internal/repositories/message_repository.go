package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"printdesk-chat/internal/crypto"
	"printdesk-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines persistence for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, sender, receiver, plaintext string) (models.Message, error)
	FindConversation(ctx context.Context, identityA, identityB string) ([]models.Message, error)
	DeleteByID(ctx context.Context, id string) (sender, receiver string, err error)
	CountMessages(ctx context.Context) (int, error)
}

// MessageRepo is a sqlx-backed repository. Bodies are encrypted before the
// insert and decrypted on every read; no plaintext touches the database.
type MessageRepo struct {
	db     *sqlx.DB
	cipher *crypto.Cipher
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB, cipher *crypto.Cipher) *MessageRepo {
	return &MessageRepo{db: db, cipher: cipher}
}

// Create encrypts the body up front, assigns an id and stores the message.
// The returned record echoes the original plaintext for the sender's
// immediate display rather than re-decrypting the stored row.
func (r *MessageRepo) Create(ctx context.Context, sender, receiver, plaintext string) (models.Message, error) {
	encrypted, err := r.cipher.Encrypt(plaintext)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:            uuid.NewString(),
		Sender:        sender,
		Receiver:      receiver,
		EncryptedBody: encrypted,
		Body:          plaintext,
	}
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, sender, receiver, encrypted_body) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		msg.ID, msg.Sender, msg.Receiver, msg.EncryptedBody).
		Scan(&msg.Timestamp)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// FindConversation returns all messages exchanged between the two identities
// in either direction, ascending by timestamp, with bodies decrypted. A row
// that fails to decrypt carries the sentinel body and does not abort the
// query.
func (r *MessageRepo) FindConversation(ctx context.Context, identityA, identityB string) ([]models.Message, error) {
	query := `SELECT id, sender, receiver, encrypted_body, created_at FROM messages
        WHERE (sender=$1 AND receiver=$2) OR (sender=$2 AND receiver=$1)
        ORDER BY created_at ASC`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, identityA, identityB); err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Body = r.cipher.Decrypt(msgs[i].EncryptedBody)
	}
	return msgs, nil
}

// DeleteByID hard-deletes a message and reports the participants of the row
// it removed so deletion fan-out can be scoped to the conversation.
func (r *MessageRepo) DeleteByID(ctx context.Context, id string) (string, string, error) {
	var sender, receiver string
	err := r.db.QueryRowxContext(ctx,
		`DELETE FROM messages WHERE id=$1 RETURNING sender, receiver`, id).
		Scan(&sender, &receiver)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrMessageNotFound
	}
	if err != nil {
		return "", "", err
	}
	return sender, receiver, nil
}

// CountMessages returns the total number of stored messages.
func (r *MessageRepo) CountMessages(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`)
	return count, err
}

var _ MessageRepository = (*MessageRepo)(nil)
