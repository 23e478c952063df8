package session

import "context"

// NoopStore discards every write and returns empty results. Used when the
// user runs with session persistence disabled.
type NoopStore struct{}

func (NoopStore) AppendEntry(ctx context.Context, e Entry) error { return nil }

func (NoopStore) Conversation(ctx context.Context) ([]Entry, error) { return nil, nil }

func (NoopStore) ConversationTokens(ctx context.Context) (int, error) { return 0, nil }

func (NoopStore) ReplaceConversation(ctx context.Context, entries []Entry) error { return nil }

func (NoopStore) Close() error { return nil }
