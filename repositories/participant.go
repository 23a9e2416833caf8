//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
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
)

type IParticipantRepository interface {
	Join(name string, now time.Time) (domain.Participant, error)
	List() ([]domain.Participant, error)
	Heartbeat(name string, now time.Time) error
	Exists(name string) (bool, error)
	EvictStale(ttl time.Duration, now time.Time) ([]domain.Participant, error)
}

type ParticipantRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) ParticipantRepository {
	return ParticipantRepository{db: db, log: log}
}

const participantPrefix = "participant:"

// participantDoc is the stored shape. LastStatus is kept in unix milliseconds,
// matching the wire shape handed to clients.
type participantDoc struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

// Join registers a new participant. The existence check and the insert run in
// one transaction, so two concurrent joins with the same name commit exactly
// one record and the loser gets ErrParticipantExists.
func (r ParticipantRepository) Join(name string, now time.Time) (domain.Participant, error) {
	key := []byte(participantPrefix + name)
	doc := participantDoc{Name: name, LastStatus: now.UnixMilli()}
	data, err := json.Marshal(doc)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("marshal failed: %w", err)
	}

	// Retry on txn conflict: when two joins race on the same name, the loser
	// re-reads and reports the conflict instead of a storage error.
	for {
		err = r.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return errors.ErrParticipantExists
			}
			if !stderrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %v", errors.ErrStorage, err)
			}
			return txn.Set(key, data)
		})
		if stderrors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return domain.Participant{}, err
		}
		return toParticipant(doc), nil
	}
}

// List returns every registered participant, in key order.
func (r ParticipantRepository) List() ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(participantPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc participantDoc
				if err := json.Unmarshal(val, &doc); err != nil {
					return err
				}
				participants = append(participants, toParticipant(doc))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return participants, nil
}

// Heartbeat refreshes the participant's liveness timestamp. A heartbeat that
// loses a commit race against the sweeper retries, re-reads, and finds the
// participant gone; the caller must simply re-join.
func (r ParticipantRepository) Heartbeat(name string, now time.Time) error {
	key := []byte(participantPrefix + name)
	for {
		err := r.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrParticipantNotFound
			}
			if err != nil {
				return fmt.Errorf("%w: %v", errors.ErrStorage, err)
			}
			data, err := json.Marshal(participantDoc{Name: name, LastStatus: now.UnixMilli()})
			if err != nil {
				return fmt.Errorf("marshal failed: %w", err)
			}
			return txn.Set(key, data)
		})
		if stderrors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}

// Exists reports whether a participant is currently registered.
func (r ParticipantRepository) Exists(name string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(participantPrefix + name))
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return true, nil
}

// EvictStale removes every participant whose LastStatus fell behind now-ttl
// and returns exactly the set removed. The scan and the deletes share one
// serializable transaction, so a heartbeat committing concurrently forces a
// conflict and the sweep retries against the fresh timestamp. Running it
// twice with the same now evicts nothing the second time.
func (r ParticipantRepository) EvictStale(ttl time.Duration, now time.Time) ([]domain.Participant, error) {
	for {
		evicted, err := r.evictOnce(ttl, now)
		if err == nil {
			return evicted, nil
		}
		if stderrors.Is(err, badger.ErrConflict) {
			r.log.Debug("Eviction raced a heartbeat, retrying")
			continue
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
}

func (r ParticipantRepository) evictOnce(ttl time.Duration, now time.Time) ([]domain.Participant, error) {
	var evicted []domain.Participant
	err := r.db.Update(func(txn *badger.Txn) error {
		evicted = evicted[:0]
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		prefix := []byte(participantPrefix)

		var staleKeys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var doc participantDoc
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				it.Close()
				return err
			}
			p := toParticipant(doc)
			if !p.Stale(ttl, now) {
				continue
			}
			evicted = append(evicted, p)
			staleKeys = append(staleKeys, item.KeyCopy(nil))
		}
		// Writes are not allowed while an iterator is open on the txn.
		it.Close()

		for _, key := range staleKeys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func toParticipant(doc participantDoc) domain.Participant {
	return domain.Participant{
		Name:       doc.Name,
		LastStatus: time.UnixMilli(doc.LastStatus).UTC(),
	}
}
