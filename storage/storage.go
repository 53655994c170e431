package storage

// Delimiter separates every fragment appended to a context buffer.
const Delimiter = "\n---\n"

// ContextStorage maps a user identity to a single growing text buffer.
// Buffers are created empty on first reference and only ever grow,
// except for an explicit full clear.
type ContextStorage interface {
	GetOrCreate(userId int64) *UserContext
	// Append adds each fragment in order, each prefixed with Delimiter.
	Append(userId int64, fragments ...string)
	Clear(userId int64)
	Read(userId int64) string
	Users() int
}
