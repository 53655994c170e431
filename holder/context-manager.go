package holder

import (
	"fmt"
	"sync"

	"Relay/core"
	"Relay/storage"
)

// Usage is the token size of a user context against the model ceiling.
type Usage struct {
	Tokens int
	Limit  int
}

func (u Usage) String() string {
	return fmt.Sprintf("Your context: %d/%d", u.Tokens, u.Limit)
}

func (u Usage) Exceeded() bool {
	return u.Tokens > u.Limit
}

// ContextManager serializes all work on one user's context.
// Handlers hold the user lock for the whole event, including slow I/O,
// so two events of the same user never interleave.
type ContextManager struct {
	storage   storage.ContextStorage
	tokenizer core.Tokenizer
	limit     int
	locks     sync.Map // map[int64]*sync.Mutex
}

func NewContextManager(store storage.ContextStorage, tokenizer core.Tokenizer, limit int) *ContextManager {
	if limit <= 0 {
		limit = core.DefaultContextLimit
	}
	return &ContextManager{
		storage:   store,
		tokenizer: tokenizer,
		limit:     limit,
	}
}

// Lock blocks until the caller owns the user's context and returns the release func.
func (cm *ContextManager) Lock(userId int64) func() {
	value, _ := cm.locks.LoadOrStore(userId, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (cm *ContextManager) Read(userId int64) string {
	return cm.storage.Read(userId)
}

func (cm *ContextManager) Append(userId int64, fragments ...string) {
	if len(fragments) == 0 {
		cm.storage.GetOrCreate(userId)
		return
	}
	cm.storage.Append(userId, fragments...)
}

func (cm *ContextManager) Clear(userId int64) {
	cm.storage.Clear(userId)
}

// Usage counts the tokens of the current buffer. Never cached.
func (cm *ContextManager) Usage(userId int64) Usage {
	return Usage{
		Tokens: cm.tokenizer.Count(cm.storage.Read(userId)),
		Limit:  cm.limit,
	}
}
