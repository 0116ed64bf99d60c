package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/redisStore"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

// A session is two keys: session:<id> holds the JSON metadata and chain,
// session:<id>:history is a list of JSON turns.
const sessionKeyPrefix = "session:"

type RedisSessionStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

type sessionRecord struct {
	Id        string              `json:"id"`
	Chain     *sessionModel.Chain `json:"chain,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func GetRedisSessionStore(ctx context.Context) *RedisSessionStore {
	s := redisStore.GetRedisStore(ctx, config.RedisSessionStore)
	if s == nil {
		return nil
	}
	return NewRedisSessionStore(s)
}

func NewRedisSessionStore(s *redisStore.Store) *RedisSessionStore {
	return &RedisSessionStore{
		store:  s,
		logger: logger_i.NewLogger("SessionStore"),
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func historyKey(id string) string {
	return sessionKeyPrefix + id + ":history"
}

func (s *RedisSessionStore) CreateSession(ctx context.Context, id string) (sessionModel.Session, error) {
	log := s.logger.WithTrace(ctx).With("session Id", id)
	now := time.Now()
	record := sessionRecord{Id: id, CreatedAt: now, UpdatedAt: now}
	data, err := json.Marshal(record)
	if err != nil {
		return sessionModel.Session{}, err
	}
	if err = s.store.ReplaceAndClear(ctx, sessionKey(id), data, config.RedisSessionStoreTTL, historyKey(id)); err != nil {
		log.Error("Error creating session", "error", err)
		return sessionModel.Session{}, err
	}
	log.Debug("Created session")
	return sessionModel.Session{Id: id, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *RedisSessionStore) ValidateSessionId(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	found, err := s.store.Exists(ctx, sessionKey(id))
	if err != nil {
		s.logger.WithTrace(ctx).Error("Failed to check if session exists", "session Id", id, "err", err)
		return false
	}
	return found
}

func (s *RedisSessionStore) getRecord(ctx context.Context, id string) (sessionRecord, error) {
	var record sessionRecord
	val, err := s.store.Get(ctx, sessionKey(id))
	if s.store.IsNil(err) {
		return record, sessionModel.ErrSessionNotFound
	} else if err != nil {
		return record, err
	}
	err = json.Unmarshal([]byte(val), &record)
	return record, err
}

func (s *RedisSessionStore) GetSession(ctx context.Context, id string) (sessionModel.Session, bool) {
	log := s.logger.WithTrace(ctx).With("session Id", id)
	record, err := s.getRecord(ctx, id)
	if err != nil {
		if !errors.Is(err, sessionModel.ErrSessionNotFound) {
			log.Error("Error reading session", "error", err)
		}
		return sessionModel.Session{}, false
	}
	history, err := s.GetHistory(ctx, id)
	if err != nil {
		log.Error("Error reading session history", "error", err)
		return sessionModel.Session{}, false
	}
	return sessionModel.Session{
		Id:        record.Id,
		Chain:     record.Chain,
		History:   history,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, true
}

func (s *RedisSessionStore) ActivateChain(ctx context.Context, id string, chain sessionModel.Chain) error {
	log := s.logger.WithTrace(ctx).With("session Id", id, "index Id", chain.IndexId)
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	record.Chain = &chain
	record.UpdatedAt = time.Now()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err = s.store.ReplaceAndClear(ctx, sessionKey(id), data, config.RedisSessionStoreTTL, historyKey(id)); err != nil {
		log.Error("Error activating chain", "error", err)
		return err
	}
	log.Info("Activated chain", "documents", len(chain.Documents), "chunks", chain.ChunkCount)
	return nil
}

func (s *RedisSessionStore) AppendExchange(ctx context.Context, id string, question string, answer string) error {
	log := s.logger.WithTrace(ctx).With("session Id", id)
	if !s.ValidateSessionId(ctx, id) {
		return sessionModel.ErrSessionNotFound
	}
	turns := sessionModel.Exchange(question, answer)
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	err := s.store.ListPushAll(ctx, historyKey(id), config.RedisSessionStoreTTL, []string{sessionKey(id)}, values...)
	if err != nil {
		log.Error("error saving exchange", "error", err)
		return err
	}
	log.Debug("Saved exchange successfully")
	return nil
}

func (s *RedisSessionStore) GetHistory(ctx context.Context, id string) ([]sessionModel.Turn, error) {
	res, err := s.store.ListGetAll(ctx, historyKey(id))
	if err != nil {
		return nil, err
	}
	history := make([]sessionModel.Turn, 0, len(res))
	for _, raw := range res {
		var turn sessionModel.Turn
		if err = json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("corrupt history entry: %w", err)
		}
		history = append(history, turn)
	}
	return history, nil
}
