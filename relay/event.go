package relay

// Document references an attachment on the chat platform.
type Document struct {
	FileId   string
	FileName string
	MimeType string
}

// Event is one inbound chat message, reduced to what the context needs.
type Event struct {
	UserId int64
	Text   string
	// Caption and Document are set for an attachment sent directly.
	Caption  string
	Document *Document
	// Reply fields describe the message this one answers, if any.
	ReplyText     string
	ReplyDocument *Document
}

func (e Event) IsDocument() bool {
	return e.Document != nil
}

func (e Event) Kind() string {
	if e.IsDocument() {
		return "document"
	}
	return "text"
}
