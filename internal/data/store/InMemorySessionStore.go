package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
)

type InMemorySessionStore struct {
	sessionLock *sync.RWMutex
	sessionMap  map[string]sessionModel.Session
}

func InitInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessionLock: new(sync.RWMutex),
		sessionMap:  make(map[string]sessionModel.Session),
	}
}

func (store *InMemorySessionStore) CreateSession(ctx context.Context, id string) (sessionModel.Session, error) {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	now := time.Now()
	session := sessionModel.Session{Id: id, History: []sessionModel.Turn{}, CreatedAt: now, UpdatedAt: now}
	store.sessionMap[id] = session
	return session, nil
}

func (store *InMemorySessionStore) ValidateSessionId(ctx context.Context, id string) bool {
	store.sessionLock.RLock()
	defer store.sessionLock.RUnlock()
	_, ok := store.sessionMap[id]
	return ok
}

func (store *InMemorySessionStore) GetSession(ctx context.Context, id string) (sessionModel.Session, bool) {
	store.sessionLock.RLock()
	defer store.sessionLock.RUnlock()
	session, ok := store.sessionMap[id]
	if !ok {
		return sessionModel.Session{}, false
	}
	//copy so callers cannot mutate the stored history
	session.History = append([]sessionModel.Turn{}, session.History...)
	return session, true
}

func (store *InMemorySessionStore) ActivateChain(ctx context.Context, id string, chain sessionModel.Chain) error {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	session, ok := store.sessionMap[id]
	if !ok {
		return sessionModel.ErrSessionNotFound
	}
	session.Chain = &chain
	session.History = []sessionModel.Turn{}
	session.UpdatedAt = time.Now()
	store.sessionMap[id] = session
	return nil
}

func (store *InMemorySessionStore) AppendExchange(ctx context.Context, id string, question string, answer string) error {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	session, ok := store.sessionMap[id]
	if !ok {
		return sessionModel.ErrSessionNotFound
	}
	session.History = append(session.History, sessionModel.Exchange(question, answer)...)
	session.UpdatedAt = time.Now()
	store.sessionMap[id] = session
	return nil
}

func (store *InMemorySessionStore) GetHistory(ctx context.Context, id string) ([]sessionModel.Turn, error) {
	session, ok := store.GetSession(ctx, id)
	if !ok {
		return nil, sessionModel.ErrSessionNotFound
	}
	return session.History, nil
}
