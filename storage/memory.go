package storage

import (
	"strings"
	"sync"
)

// UserContext is the accumulated text of one user.
type UserContext struct {
	UserId int64
	mutex  sync.RWMutex
	data   strings.Builder
}

func (u *UserContext) Append(fragments ...string) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	for _, fragment := range fragments {
		u.data.WriteString(Delimiter)
		u.data.WriteString(fragment)
	}
}

func (u *UserContext) Clear() {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.data.Reset()
}

func (u *UserContext) Data() string {
	u.mutex.RLock()
	defer u.mutex.RUnlock()
	return u.data.String()
}

func (u *UserContext) IsEmpty() bool {
	u.mutex.RLock()
	defer u.mutex.RUnlock()
	return u.data.Len() == 0
}

type MemoryStorage struct {
	contexts map[int64]*UserContext
	mutex    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		contexts: make(map[int64]*UserContext),
	}
}

func (m *MemoryStorage) GetOrCreate(userId int64) *UserContext {
	m.mutex.RLock()
	ctx, ok := m.contexts[userId]
	m.mutex.RUnlock()
	if ok {
		return ctx
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if ctx, ok = m.contexts[userId]; ok {
		return ctx
	}
	ctx = &UserContext{UserId: userId}
	m.contexts[userId] = ctx
	return ctx
}

func (m *MemoryStorage) Append(userId int64, fragments ...string) {
	m.GetOrCreate(userId).Append(fragments...)
}

func (m *MemoryStorage) Clear(userId int64) {
	m.GetOrCreate(userId).Clear()
}

func (m *MemoryStorage) Read(userId int64) string {
	return m.GetOrCreate(userId).Data()
}

// Users returns the number of buffers created so far.
func (m *MemoryStorage) Users() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.contexts)
}
