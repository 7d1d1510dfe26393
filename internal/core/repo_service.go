package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"repochat/internal/config"
	"repochat/internal/rag"
	"repochat/internal/store"
)

var githubURLPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/[\w-]+/[\w.-]+/?$`)

// RepoService owns the repository lifecycle state machine and the ingestion
// pipeline. A repository is created in the processing state, ingestion runs
// in the background, and the status moves exactly once to ready or error.
type RepoService struct {
	store    *store.Store
	fetcher  CorpusFetcher
	embedder Embedder
	cfg      *config.Config

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewRepoService(st *store.Store, fetcher CorpusFetcher, embedder Embedder, cfg *config.Config) *RepoService {
	return &RepoService{
		store:    st,
		fetcher:  fetcher,
		embedder: embedder,
		cfg:      cfg,
		inflight: make(map[string]struct{}),
	}
}

// ParseRepoURL validates a GitHub repository URL and extracts owner and name.
func ParseRepoURL(url string) (owner, name string, err error) {
	if !githubURLPattern.MatchString(url) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRepoURL, url)
	}
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// CreateRepository registers a repository in the processing state and starts
// ingestion in the background. The caller observes completion by polling the
// repository status.
func (s *RepoService) CreateRepository(userID, url string) (*store.Repository, error) {
	owner, name, err := ParseRepoURL(url)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ReposForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	for _, r := range existing {
		if r.Owner == owner && r.Name == name {
			return nil, fmt.Errorf("%w: %s/%s", ErrRepoExists, owner, name)
		}
	}

	now := time.Now()
	repo := &store.Repository{
		ID:        uuid.NewString(),
		UserID:    userID,
		URL:       url,
		Owner:     owner,
		Name:      name,
		Status:    store.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutRepository(repo); err != nil {
		return nil, fmt.Errorf("failed to store repository: %w", err)
	}

	ids, err := s.store.UserRepoIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read user repository list: %w", err)
	}
	if err := s.store.SetUserRepoIDs(userID, append(ids, repo.ID)); err != nil {
		return nil, fmt.Errorf("failed to update user repository list: %w", err)
	}

	go s.runIngestion(repo.ID, owner, name)

	return repo, nil
}

// runIngestion executes the full ingestion pipeline for one repository:
// fetch corpus, chunk, embed in one batch, store the chunk set, mark ready.
// Any stage failure is captured as the repository's error state; nothing is
// stored from a failed attempt.
func (s *RepoService) runIngestion(repoID, owner, name string) {
	if !s.acquireIngestion(repoID) {
		log.Printf("Ingestion already in flight for repository %s, skipping.", repoID)
		return
	}
	defer s.releaseIngestion(repoID)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ingestion panic for repository %s: %v", repoID, r)
			s.markError(repoID, fmt.Sprintf("ingestion failed: %v", r))
		}
	}()

	log.Printf("Starting embedding process for repository %s", repoID)

	fetchCtx, cancelFetch := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	defer cancelFetch()
	corpus, err := s.fetcher.FetchCorpus(fetchCtx, owner, name)
	if err != nil {
		log.Printf("Error fetching corpus for repository %s: %v", repoID, err)
		s.markError(repoID, err.Error())
		return
	}

	texts := rag.SplitText(corpus, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(texts) == 0 {
		s.markError(repoID, "repository corpus is empty")
		return
	}
	log.Printf("Split repository %s into %d chunks", repoID, len(texts))

	embedCtx, cancelEmbed := context.WithTimeout(context.Background(), s.cfg.EmbedTimeout)
	defer cancelEmbed()
	vectors, err := s.embedder.EmbedBatch(embedCtx, texts)
	if err != nil {
		log.Printf("Error embedding repository %s: %v", repoID, err)
		s.markError(repoID, err.Error())
		return
	}

	chunks := make([]store.Chunk, len(texts))
	for i := range texts {
		chunks[i] = store.Chunk{Text: texts[i], Embedding: vectors[i]}
	}
	if err := s.store.PutChunkSet(repoID, chunks); err != nil {
		log.Printf("Error storing chunk set for repository %s: %v", repoID, err)
		s.markError(repoID, err.Error())
		return
	}

	s.markReady(repoID, len(chunks))
	log.Printf("Successfully embedded repository %s", repoID)
}

func (s *RepoService) acquireIngestion(repoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[repoID]; ok {
		return false
	}
	s.inflight[repoID] = struct{}{}
	return true
}

func (s *RepoService) releaseIngestion(repoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, repoID)
}

func (s *RepoService) markReady(repoID string, chunkCount int) {
	repo, err := s.store.GetRepository(repoID)
	if err != nil || repo == nil {
		log.Printf("Could not load repository %s to mark ready: %v", repoID, err)
		return
	}
	repo.Status = store.StatusReady
	repo.Error = ""
	repo.ChunkCount = chunkCount
	repo.UpdatedAt = time.Now()
	if err := s.store.PutRepository(repo); err != nil {
		log.Printf("Failed to mark repository %s ready: %v", repoID, err)
	}
}

func (s *RepoService) markError(repoID, message string) {
	if message == "" {
		message = "ingestion failed"
	}
	repo, err := s.store.GetRepository(repoID)
	if err != nil || repo == nil {
		log.Printf("Could not load repository %s to mark error: %v", repoID, err)
		return
	}
	repo.Status = store.StatusError
	repo.Error = message
	repo.UpdatedAt = time.Now()
	if err := s.store.PutRepository(repo); err != nil {
		log.Printf("Failed to mark repository %s errored: %v", repoID, err)
	}
}

// GetRepository returns the repository if it exists and belongs to the user.
func (s *RepoService) GetRepository(userID, repoID string) (*store.Repository, error) {
	repo, err := s.store.GetRepository(repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	if repo == nil || repo.UserID != userID {
		return nil, ErrNotFound
	}
	return repo, nil
}

func (s *RepoService) ListRepositories(userID string) ([]store.Repository, error) {
	return s.store.ReposForUser(userID)
}

// DeleteRepository removes the repository record, its chunk set, and all of
// its chats and messages.
func (s *RepoService) DeleteRepository(userID, repoID string) error {
	repo, err := s.GetRepository(userID, repoID)
	if err != nil {
		return err
	}

	ids, err := s.store.UserRepoIDs(userID)
	if err != nil {
		return fmt.Errorf("failed to read user repository list: %w", err)
	}
	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != repo.ID {
			remaining = append(remaining, id)
		}
	}
	if err := s.store.SetUserRepoIDs(userID, remaining); err != nil {
		return fmt.Errorf("failed to update user repository list: %w", err)
	}

	chatIDs, err := s.store.RepoChatIDs(repoID)
	if err != nil {
		return fmt.Errorf("failed to list chats for repository: %w", err)
	}
	for _, chatID := range chatIDs {
		msgIDs, err := s.store.ChatMessageIDs(chatID)
		if err != nil {
			return fmt.Errorf("failed to list messages for chat %s: %w", chatID, err)
		}
		for _, msgID := range msgIDs {
			if err := s.store.DeleteMessage(msgID); err != nil {
				return fmt.Errorf("failed to delete message %s: %w", msgID, err)
			}
		}
		if err := s.store.DeleteChat(chatID); err != nil {
			return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
		}
	}
	if err := s.store.DeleteRepoChatList(repoID); err != nil {
		return fmt.Errorf("failed to delete chat list: %w", err)
	}

	if err := s.store.DeleteChunkSet(repoID); err != nil {
		return fmt.Errorf("failed to delete chunk set: %w", err)
	}
	return s.store.DeleteRepository(repoID)
}
