package core

import (
	"context"
	"sync"
	"time"

	"repochat/internal/config"
	"repochat/internal/kv"
	"repochat/internal/store"
)

// mockFetcher implements CorpusFetcher.
type mockFetcher struct {
	mu     sync.Mutex
	corpus string
	err    error
	calls  int
}

func (m *mockFetcher) FetchCorpus(ctx context.Context, owner, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.corpus, nil
}

// mockEmbedder implements Embedder. Unless overridden it returns the query
// vector [1,0] and per-chunk vectors [1,0].
type mockEmbedder struct {
	mu         sync.Mutex
	queryVec   []float32
	err        error
	oneCalls   int
	batchCalls int
}

func (m *mockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.queryVec != nil {
		return m.queryVec, nil
	}
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.err != nil {
		return nil, m.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

// mockGenerator implements Generator and records the prompts it was given.
type mockGenerator struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (m *mockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	if m.err != nil {
		return "", m.err
	}
	if m.response != "" {
		return m.response, nil
	}
	return "mocked answer", nil
}

func (m *mockGenerator) GenerateTitle(ctx context.Context, basisContent string) (string, error) {
	return "Mock Title", nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testConfig() *config.Config {
	return &config.Config{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		TopKChunks:      3,
		HistoryWindow:   10,
		FetchTimeout:    5 * time.Second,
		EmbedTimeout:    5 * time.Second,
		GenerateTimeout: 5 * time.Second,
	}
}

func newTestStore() *store.Store {
	return store.New(kv.NewMemoryStore())
}
