package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"repochat/internal/config"
	"repochat/internal/rag"
	"repochat/internal/store"
)

const defaultChatTitle = "New Chat"

// generationFailureNotice is stored as the assistant turn when generation
// fails after a valid question, so every user message keeps a paired reply.
const generationFailureNotice = "I'm sorry, I encountered an error while processing your request. Please try again."

// ChatService owns chats and runs the query pipeline: embed the question,
// rank stored chunks, assemble context and history, generate, persist the
// message pair.
type ChatService struct {
	store     *store.Store
	embedder  Embedder
	generator Generator
	cfg       *config.Config

	mu        sync.Mutex
	chatLocks map[string]*sync.Mutex
}

func NewChatService(st *store.Store, embedder Embedder, generator Generator, cfg *config.Config) *ChatService {
	return &ChatService{
		store:     st,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		chatLocks: make(map[string]*sync.Mutex),
	}
}

// CreateChat creates an empty chat under the user's repository.
func (s *ChatService) CreateChat(userID, repoID, title string) (*store.Chat, error) {
	repo, err := s.store.GetRepository(repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	if repo == nil || repo.UserID != userID {
		return nil, ErrNotFound
	}

	if title == "" {
		title = defaultChatTitle
	}
	now := time.Now()
	chat := &store.Chat{
		ID:        uuid.NewString(),
		RepoID:    repoID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutChat(chat); err != nil {
		return nil, fmt.Errorf("failed to store chat: %w", err)
	}
	if err := s.store.AddRepoChat(repoID, chat.ID); err != nil {
		return nil, fmt.Errorf("failed to update chat list: %w", err)
	}
	return chat, nil
}

func (s *ChatService) ListChats(userID, repoID string) ([]store.Chat, error) {
	repo, err := s.store.GetRepository(repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	if repo == nil || repo.UserID != userID {
		return nil, ErrNotFound
	}
	return s.store.ChatsForRepo(repoID)
}

func (s *ChatService) GetMessages(userID, chatID string) ([]store.Message, error) {
	if _, err := s.getOwnedChat(userID, chatID); err != nil {
		return nil, err
	}
	return s.store.MessagesForChat(chatID)
}

// PostMessage answers a question against the chat's repository and persists
// the resulting user/assistant message pair. The repository must be ready;
// otherwise the call fails before any external request is made.
func (s *ChatService) PostMessage(userID, chatID, content string) (*store.Message, *store.Message, error) {
	chat, err := s.getOwnedChat(userID, chatID)
	if err != nil {
		return nil, nil, err
	}

	repo, err := s.store.GetRepository(chat.RepoID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get repository: %w", err)
	}
	if repo == nil {
		return nil, nil, ErrNotFound
	}
	if repo.Status != store.StatusReady {
		return nil, nil, fmt.Errorf("%w: status is %s", ErrNotReady, repo.Status)
	}

	embedCtx, cancelEmbed := context.WithTimeout(context.Background(), s.cfg.EmbedTimeout)
	defer cancelEmbed()
	queryVector, err := s.embedder.EmbedOne(embedCtx, content)
	if err != nil {
		return nil, nil, err
	}

	chunks, found, err := s.store.GetChunkSet(repo.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chunk set: %w", err)
	}
	if !found || len(chunks) == 0 {
		return nil, nil, rag.ErrEmptyIndex
	}

	topChunks, err := rag.TopK(queryVector, chunks, s.cfg.TopKChunks)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Found %d relevant chunks for question in chat %s", len(topChunks), chatID)

	// History is read before the new question is persisted, so the window
	// never contains the question itself.
	history, err := s.store.LastMessages(chatID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	systemPrompt := rag.BuildSystemPrompt(topChunks)
	userPrompt := rag.BuildUserPrompt(rag.BuildHistory(history), content)

	genCtx, cancelGen := context.WithTimeout(context.Background(), s.cfg.GenerateTimeout)
	defer cancelGen()
	answer, genErr := s.generator.Generate(genCtx, systemPrompt, userPrompt)
	if genErr != nil {
		log.Printf("Error generating response for chat %s: %v", chatID, genErr)
		answer = generationFailureNotice
	}

	userMsg, assistantMsg, err := s.appendMessagePair(chatID, content, answer)
	if err != nil {
		return nil, nil, err
	}

	if genErr == nil && chat.Title == defaultChatTitle {
		go s.generateAndSaveChatTitle(chatID, content)
	}

	return userMsg, assistantMsg, nil
}

// appendMessagePair persists the question and answer with strictly increasing
// creation times. Appends to the same chat are serialized so concurrent
// questions cannot interleave their pairs.
func (s *ChatService) appendMessagePair(chatID, question, answer string) (*store.Message, *store.Message, error) {
	lock := s.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	userAt := time.Now()
	assistantAt := time.Now()
	if !assistantAt.After(userAt) {
		assistantAt = userAt.Add(time.Nanosecond)
	}

	userMsg := &store.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      "user",
		Content:   question,
		CreatedAt: userAt,
	}
	assistantMsg := &store.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      "assistant",
		Content:   answer,
		CreatedAt: assistantAt,
	}

	if err := s.store.PutMessage(userMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store user message: %w", err)
	}
	if err := s.store.PutMessage(assistantMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	if err := s.store.AppendChatMessages(chatID, userMsg.ID, assistantMsg.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to update message list: %w", err)
	}
	return userMsg, assistantMsg, nil
}

func (s *ChatService) chatLock(chatID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chatLocks[chatID] = lock
	}
	return lock
}

func (s *ChatService) getOwnedChat(userID, chatID string) (*store.Chat, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil || chat.UserID != userID {
		return nil, ErrNotFound
	}
	return chat, nil
}

func (s *ChatService) generateAndSaveChatTitle(chatID, basisContent string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GenerateTimeout)
	defer cancel()

	title, err := s.generator.GenerateTitle(ctx, basisContent)
	if err != nil {
		log.Printf("Failed to generate title for chat %s: %v", chatID, err)
		return
	}

	chat, err := s.store.GetChat(chatID)
	if err != nil || chat == nil {
		log.Printf("Could not load chat %s to save title: %v", chatID, err)
		return
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()
	if err := s.store.PutChat(chat); err != nil {
		log.Printf("Failed to save generated title %q for chat %s: %v", title, chatID, err)
	}
}
