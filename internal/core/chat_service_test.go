package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"repochat/internal/rag"
	"repochat/internal/store"
)

// seedReadyRepo stores a ready repository with a two-chunk set whose first
// chunk matches the default mock query vector exactly.
func seedReadyRepo(t *testing.T, st *store.Store, userID string) *store.Repository {
	t.Helper()
	repo := &store.Repository{
		ID:         "r-1",
		UserID:     userID,
		Owner:      "octo",
		Name:       "demo",
		Status:     store.StatusReady,
		ChunkCount: 2,
	}
	if err := st.PutRepository(repo); err != nil {
		t.Fatalf("put repository: %v", err)
	}
	chunks := []store.Chunk{
		{Text: "chunk about parsing", Embedding: []float32{1, 0}},
		{Text: "chunk about storage", Embedding: []float32{0, 1}},
	}
	if err := st.PutChunkSet(repo.ID, chunks); err != nil {
		t.Fatalf("put chunk set: %v", err)
	}
	return repo
}

func seedChat(t *testing.T, st *store.Store, repoID, userID string) *store.Chat {
	t.Helper()
	chat := &store.Chat{ID: "c-1", RepoID: repoID, UserID: userID, Title: "Test Chat"}
	if err := st.PutChat(chat); err != nil {
		t.Fatalf("put chat: %v", err)
	}
	if err := st.AddRepoChat(repoID, chat.ID); err != nil {
		t.Fatalf("add repo chat: %v", err)
	}
	return chat
}

func TestPostMessageSuccess(t *testing.T) {
	st := newTestStore()
	embedder := &mockEmbedder{}
	generator := &mockGenerator{response: "The repo parses files."}
	svc := NewChatService(st, embedder, generator, testConfig())

	repo := seedReadyRepo(t, st, "u-1")
	chat := seedChat(t, st, repo.ID, "u-1")

	userMsg, assistantMsg, err := svc.PostMessage("u-1", chat.ID, "what does it do?")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}

	if userMsg.Role != "user" || userMsg.Content != "what does it do?" {
		t.Errorf("unexpected user message: %+v", userMsg)
	}
	if assistantMsg.Role != "assistant" || assistantMsg.Content != "The repo parses files." {
		t.Errorf("unexpected assistant message: %+v", assistantMsg)
	}
	if !assistantMsg.CreatedAt.After(userMsg.CreatedAt) {
		t.Error("assistant message must be created strictly after the user message")
	}

	messages, err := st.MessagesForChat(chat.ID)
	if err != nil {
		t.Fatalf("messages for chat: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("messages out of order: %s then %s", messages[0].Role, messages[1].Role)
	}

	if !strings.Contains(generator.lastSystem, "chunk about parsing") {
		t.Error("system prompt should contain the best-matching chunk")
	}
	if !strings.HasSuffix(generator.lastUser, "what does it do?") {
		t.Errorf("user prompt should end with the question, got %q", generator.lastUser)
	}
}

func TestPostMessageNotReadyNoSideEffects(t *testing.T) {
	st := newTestStore()
	embedder := &mockEmbedder{}
	generator := &mockGenerator{}
	svc := NewChatService(st, embedder, generator, testConfig())

	repo := &store.Repository{ID: "r-1", UserID: "u-1", Status: store.StatusProcessing}
	if err := st.PutRepository(repo); err != nil {
		t.Fatalf("put repository: %v", err)
	}
	chat := seedChat(t, st, repo.ID, "u-1")

	_, _, err := svc.PostMessage("u-1", chat.ID, "too early")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	if embedder.oneCalls != 0 {
		t.Errorf("embedding must not be called, got %d calls", embedder.oneCalls)
	}
	if generator.callCount() != 0 {
		t.Errorf("generation must not be called, got %d calls", generator.callCount())
	}
	if messages, _ := st.MessagesForChat(chat.ID); len(messages) != 0 {
		t.Error("no messages may be persisted for a rejected query")
	}
}

func TestPostMessageEmptyIndex(t *testing.T) {
	st := newTestStore()
	embedder := &mockEmbedder{}
	generator := &mockGenerator{}
	svc := NewChatService(st, embedder, generator, testConfig())

	// Ready status but no stored chunk set.
	repo := &store.Repository{ID: "r-1", UserID: "u-1", Status: store.StatusReady, ChunkCount: 1}
	if err := st.PutRepository(repo); err != nil {
		t.Fatalf("put repository: %v", err)
	}
	chat := seedChat(t, st, repo.ID, "u-1")

	_, _, err := svc.PostMessage("u-1", chat.ID, "anything there?")
	if !errors.Is(err, rag.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}

	if generator.callCount() != 0 {
		t.Errorf("generation must not be called on an empty index, got %d calls", generator.callCount())
	}
	if messages, _ := st.MessagesForChat(chat.ID); len(messages) != 0 {
		t.Error("no messages may be persisted when retrieval fails")
	}
}

func TestPostMessageGenerationFailureKeepsPair(t *testing.T) {
	st := newTestStore()
	embedder := &mockEmbedder{}
	generator := &mockGenerator{err: errors.New("generation request failed: overloaded")}
	svc := NewChatService(st, embedder, generator, testConfig())

	repo := seedReadyRepo(t, st, "u-1")
	chat := seedChat(t, st, repo.ID, "u-1")

	userMsg, assistantMsg, err := svc.PostMessage("u-1", chat.ID, "will this fail?")
	if err != nil {
		t.Fatalf("generation failure must not drop the turn: %v", err)
	}

	if userMsg.Content != "will this fail?" {
		t.Errorf("question not preserved: %q", userMsg.Content)
	}
	if assistantMsg.Content != generationFailureNotice {
		t.Errorf("assistant turn should be the failure notice, got %q", assistantMsg.Content)
	}

	messages, err := st.MessagesForChat(chat.ID)
	if err != nil {
		t.Fatalf("messages for chat: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected the persisted pair, got %d messages", len(messages))
	}
}

func TestPostMessageHistoryWindow(t *testing.T) {
	st := newTestStore()
	generator := &mockGenerator{}
	svc := NewChatService(st, &mockEmbedder{}, generator, testConfig())

	repo := seedReadyRepo(t, st, "u-1")
	chat := seedChat(t, st, repo.ID, "u-1")

	base := time.Now()
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msg := &store.Message{
			ID:        fmt.Sprintf("m-%02d", i),
			ChatID:    chat.ID,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := st.PutMessage(msg); err != nil {
			t.Fatalf("put message: %v", err)
		}
		if err := st.AppendChatMessages(chat.ID, msg.ID); err != nil {
			t.Fatalf("append message: %v", err)
		}
	}

	if _, _, err := svc.PostMessage("u-1", chat.ID, "and now?"); err != nil {
		t.Fatalf("post message: %v", err)
	}

	// Exactly the last 10 prior messages, oldest first, then the question.
	if strings.Contains(generator.lastUser, "message 4") {
		t.Error("history window should not contain message 4")
	}
	for i := 5; i < 15; i++ {
		if !strings.Contains(generator.lastUser, fmt.Sprintf("message %d", i)) {
			t.Errorf("history window missing message %d", i)
		}
	}
	idx5 := strings.Index(generator.lastUser, "message 5")
	idx14 := strings.Index(generator.lastUser, "message 14")
	if idx5 < 0 || idx14 < 0 || idx5 > idx14 {
		t.Error("history window should be rendered oldest first")
	}
	if !strings.HasSuffix(generator.lastUser, "Human: and now?") {
		t.Errorf("user prompt should end with the new question, got %q", generator.lastUser)
	}
}

func TestCreateChatRequiresOwnedRepo(t *testing.T) {
	st := newTestStore()
	svc := NewChatService(st, &mockEmbedder{}, &mockGenerator{}, testConfig())

	repo := seedReadyRepo(t, st, "u-1")

	if _, err := svc.CreateChat("u-2", repo.ID, "Sneaky"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user's repository, got %v", err)
	}

	chat, err := svc.CreateChat("u-1", repo.ID, "")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if chat.Title != "New Chat" {
		t.Errorf("empty title should default to 'New Chat', got %q", chat.Title)
	}

	chats, err := svc.ListChats("u-1", repo.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != chat.ID {
		t.Errorf("expected the created chat in the list, got %+v", chats)
	}
}
