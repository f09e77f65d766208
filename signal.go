package graver

// Signal is the in-memory change-notification primitive domain types embed to
// let views observe edits. It is runtime-only state: descriptor construction
// excludes Signal fields before the manifest is consulted, so they need no
// manifest entry and never reach the stream.
type Signal struct {
	handlers []func()
}

// Subscribe registers fn to run on every Fire. Not safe for concurrent use;
// the document model is single-writer.
func (s *Signal) Subscribe(fn func()) {
	if fn != nil {
		s.handlers = append(s.handlers, fn)
	}
}

// Fire invokes the subscribed handlers in registration order.
func (s *Signal) Fire() {
	for _, fn := range s.handlers {
		fn()
	}
}
