//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Create(message domain.Message) (domain.Message, error)
	Query(viewer string, limit int) ([]domain.Message, error)
	Update(id uuid.UUID, editor string, edit domain.MessageEdit) error
	Delete(id uuid.UUID, requester string) error
	BulkInsertStatus(messages []domain.Message) error
	Count() (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

const (
	messagePrefix = "msg:"
	idPrefix      = "msgid:"
)

type messageDoc struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
	At   int64  `json:"at"`
}

// messageKey builds the primary key "msg:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps keys in chronological order under
// lexicographic iteration; the UUID disambiguates same-nanosecond writes.
func messageKey(at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, at.UnixNano(), id))
}

func idKey(id uuid.UUID) []byte {
	return []byte(idPrefix + id.String())
}

// Create assigns the message id and server timestamps and persists the record
// together with its id pointer. Sender registration is the caller's check.
func (m MessageRepository) Create(message domain.Message) (domain.Message, error) {
	message.ID = uuid.New()
	message.At = time.Now().UTC()
	message.Time = message.At.Format(domain.TimeLayout)

	err := m.db.Update(func(txn *badger.Txn) error {
		return putMessage(txn, message)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return message, nil
}

// Query returns the messages visible to viewer, newest first. A limit of zero
// means unbounded; negative limits are rejected upstream by validation.
func (m MessageRepository) Query(viewer string, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		// Seek past the last possible timestamp, then walk backwards.
		seekKey := append([]byte(messagePrefix), []byte("9999999999999999999:")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug("Query limit reached", "viewer", viewer, "limit", limit)
				break
			}
			var doc messageDoc
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(doc)
			if err != nil {
				return err
			}
			if !message.VisibleTo(viewer) {
				continue
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return messages, nil
}

// Update replaces the mutable fields of a message. From, id and time are
// immutable, so the primary key never moves. The owner check and the write
// share one transaction; either everything commits or nothing does.
func (m MessageRepository) Update(id uuid.UUID, editor string, edit domain.MessageEdit) error {
	return m.locate(id, func(txn *badger.Txn, message domain.Message) error {
		if !message.OwnedBy(editor) {
			return errors.ErrNotMessageOwner
		}
		message.To = edit.To
		message.Text = edit.Text
		message.Type = edit.Type
		data, err := json.Marshal(fromMessage(message))
		if err != nil {
			return err
		}
		return txn.Set(messageKey(message.At, message.ID), data)
	})
}

// Delete permanently removes a message and its id pointer.
func (m MessageRepository) Delete(id uuid.UUID, requester string) error {
	return m.locate(id, func(txn *badger.Txn, message domain.Message) error {
		if !message.OwnedBy(requester) {
			return errors.ErrNotMessageOwner
		}
		if err := txn.Delete(messageKey(message.At, message.ID)); err != nil {
			return err
		}
		return txn.Delete(idKey(message.ID))
	})
}

// BulkInsertStatus writes a batch of presence notices in one transaction.
func (m MessageRepository) BulkInsertStatus(messages []domain.Message) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		for _, message := range messages {
			if err := putMessage(txn, message); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

// Count returns the number of stored messages. Key-only iteration, no value
// fetches.
func (m MessageRepository) Count() (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return count, nil
}

// locate resolves a message by id pointer and hands it to fn inside the same
// transaction. Ownership failures and not-found pass through unwrapped.
func (m MessageRepository) locate(id uuid.UUID, fn func(txn *badger.Txn, message domain.Message) error) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		var primaryKey []byte
		if err = item.Value(func(val []byte) error {
			primaryKey = append(primaryKey, val...)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(primaryKey)
		if err != nil {
			return err
		}
		var doc messageDoc
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return err
		}
		message, err := toMessage(doc)
		if err != nil {
			return err
		}
		return fn(txn, message)
	})
	if err == nil ||
		stderrors.Is(err, errors.ErrMessageNotFound) ||
		stderrors.Is(err, errors.ErrNotMessageOwner) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStorage, err)
}

func putMessage(txn *badger.Txn, message domain.Message) error {
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	key := messageKey(message.At, message.ID)
	if err = txn.Set(key, data); err != nil {
		return err
	}
	return txn.Set(idKey(message.ID), key)
}

func fromMessage(message domain.Message) messageDoc {
	return messageDoc{
		ID:   message.ID.String(),
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Type: string(message.Type),
		Time: message.Time,
		At:   message.At.UnixNano(),
	}
}

func toMessage(doc messageDoc) (domain.Message, error) {
	parsedID, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:   parsedID,
		From: doc.From,
		To:   doc.To,
		Text: doc.Text,
		Type: domain.MessageType(doc.Type),
		Time: doc.Time,
		At:   time.Unix(0, doc.At).UTC(),
	}, nil
}
