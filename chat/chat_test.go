package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youssefsiam38/memorykeep"
	"github.com/youssefsiam38/memorykeep/storage"
	"github.com/youssefsiam38/memorykeep/storage/memstore"
)

type responderFunc func(ctx context.Context, messages []memorykeep.Message) (string, error)

func (f responderFunc) Generate(ctx context.Context, messages []memorykeep.Message) (string, error) {
	return f(ctx, messages)
}

type costlyAuthority struct{}

func (costlyAuthority) JudgeImportance(ctx context.Context, role memorykeep.Role, content string) (*memorykeep.ImportanceJudgment, error) {
	return &memorykeep.ImportanceJudgment{TokenCost: 10}, nil
}

func (costlyAuthority) DecideSearch(ctx context.Context, msg string) (*memorykeep.SearchDecision, error) {
	return &memorykeep.SearchDecision{}, nil
}

func newService(t *testing.T, responder memorykeep.Responder, opts ...memorykeep.Option) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	engine, err := memorykeep.New(store, costlyAuthority{}, nil, opts...)
	require.NoError(t, err)
	return NewService(engine, responder, nil), store
}

func TestSend(t *testing.T) {
	var prompt []memorykeep.Message
	svc, store := newService(t, responderFunc(func(ctx context.Context, messages []memorykeep.Message) (string, error) {
		prompt = messages
		return "**Hello** there", nil
	}), memorykeep.WithDirectives(memorykeep.StaticDirectives{"core"}))

	reply, err := svc.Send(context.Background(), "c1", "hi")
	require.NoError(t, err)

	assert.Equal(t, "**Hello** there", reply.Text)
	assert.Equal(t, "<p><strong>Hello</strong> there</p>\n", reply.HTML)
	assert.False(t, reply.GenerationFailed)
	assert.False(t, reply.Consolidated)

	require.Len(t, prompt, 2)
	assert.Equal(t, memorykeep.Message{Role: memorykeep.RoleSystem, Content: "core"}, prompt[0])
	assert.Equal(t, memorykeep.Message{Role: memorykeep.RoleUser, Content: "hi"}, prompt[1])

	entries, err := store.GetEntries(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "assistant", entries[1].Role)
	assert.Equal(t, "**Hello** there", entries[1].Content)

	require.NotNil(t, reply.Stats)
	assert.Equal(t, 10, reply.Stats.AuthorityTokens)
	assert.Equal(t, 2, reply.Stats.Entries)
}

func TestSendAccumulatesUsage(t *testing.T) {
	svc, _ := newService(t, responderFunc(func(context.Context, []memorykeep.Message) (string, error) {
		return "ok", nil
	}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, "c1", "hello")
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, "c2", "hello")
	require.NoError(t, err)

	assert.Equal(t, 30, svc.Usage("c1").AuthorityTokens)
	assert.Equal(t, 10, svc.Usage("c2").AuthorityTokens)

	stats, err := svc.Stats(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 30, stats.AuthorityTokens)
	assert.Equal(t, stats.StreamTokens+30, stats.TotalTokens)
}

func TestSendGenerationFailure(t *testing.T) {
	svc, store := newService(t, responderFunc(func(context.Context, []memorykeep.Message) (string, error) {
		return "", errors.New("quota exceeded")
	}))

	reply, err := svc.Send(context.Background(), "c1", "hi")
	require.NoError(t, err)
	assert.True(t, reply.GenerationFailed)
	assert.Equal(t, "[Cloud API Error: quota exceeded]", reply.Text)

	entries, err := store.GetEntries(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "[Cloud API Error: quota exceeded]", entries[1].Content)
}

func TestSendConsolidates(t *testing.T) {
	svc, store := newService(t, responderFunc(func(context.Context, []memorykeep.Message) (string, error) {
		return "one two three four five six seven eight", nil
	}), memorykeep.WithConfig(memorykeep.Config{Capacity: 10}))

	reply, err := svc.Send(context.Background(), "c1", "hi")
	require.NoError(t, err)
	assert.True(t, reply.Consolidated)

	entries, err := store.GetEntries(context.Background(), "c1")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "[MEMORY_KEEP: Conversation consolidated.]", entries[0].Content)
}

// summaryFailStore rejects the memory keep summary entry.
type summaryFailStore struct {
	*memstore.Store
}

func (s summaryFailStore) AppendEntry(ctx context.Context, params *storage.AppendEntryParams) (*storage.StreamEntry, error) {
	if params.Role == string(memorykeep.RoleSystem) {
		return nil, errors.New("disk full")
	}
	return s.Store.AppendEntry(ctx, params)
}

func TestSendKeepsUsageWhenMemoryKeepFails(t *testing.T) {
	store := summaryFailStore{memstore.New()}
	engine, err := memorykeep.New(store, costlyAuthority{}, nil, memorykeep.WithConfig(memorykeep.Config{Capacity: 10}))
	require.NoError(t, err)
	svc := NewService(engine, responderFunc(func(context.Context, []memorykeep.Message) (string, error) {
		return "unused", nil
	}), nil)

	_, err = svc.Send(context.Background(), "c1", "one two three four five six seven eight")
	require.ErrorIs(t, err, memorykeep.ErrStorageUnavailable)
	assert.Equal(t, 10, svc.Usage("c1").AuthorityTokens)
}

func TestConsolidate(t *testing.T) {
	svc, _ := newService(t, responderFunc(func(context.Context, []memorykeep.Message) (string, error) {
		return "ok", nil
	}))
	ctx := context.Background()

	_, err := svc.Send(ctx, "c1", "hi")
	require.NoError(t, err)

	res, err := svc.Consolidate(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, res.TokensAfter, svc.Usage("c1").StreamTokens)
	assert.Equal(t, 3, res.EntriesAfter)
}

func TestRenderHTMLSanitizes(t *testing.T) {
	svc, _ := newService(t, nil)

	html := svc.RenderHTML("hello <script>alert(1)</script> [link](javascript:alert(1))")
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, "hello")
}
