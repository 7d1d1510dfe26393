// Package store is the typed accessor layer over the KV collaborator. It
// encodes keys internally, marshals entities as JSON records, and keeps the
// id lists (user repos, repo chats, chat messages) that give the flat KV
// space its shape.
package store

import (
	"encoding/json"
	"fmt"

	"repochat/internal/kv"
)

type Store struct {
	kv kv.Store
}

func New(kvStore kv.Store) *Store {
	return &Store{kv: kvStore}
}

func (s *Store) getJSON(key string, out any) (bool, error) {
	raw, err := s.kv.Get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}
	return s.kv.Set(key, raw)
}

func (s *Store) getIDList(key string) ([]string, error) {
	var ids []string
	if _, err := s.getJSON(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// User records

func (s *Store) CreateUser(user *User) error {
	if err := s.setJSON(userKey(user.ID), user); err != nil {
		return err
	}
	return s.kv.Set(userEmailKey(user.Email), []byte(user.ID))
}

func (s *Store) GetUser(id string) (*User, error) {
	var user User
	found, err := s.getJSON(userKey(id), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	id, err := s.kv.Get(userEmailKey(email))
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}
	return s.GetUser(string(id))
}

// Repository records

func (s *Store) PutRepository(repo *Repository) error {
	return s.setJSON(repoKey(repo.ID), repo)
}

func (s *Store) GetRepository(id string) (*Repository, error) {
	var repo Repository
	found, err := s.getJSON(repoKey(id), &repo)
	if err != nil || !found {
		return nil, err
	}
	return &repo, nil
}

func (s *Store) DeleteRepository(id string) error {
	return s.kv.Del(repoKey(id))
}

func (s *Store) UserRepoIDs(userID string) ([]string, error) {
	return s.getIDList(userReposKey(userID))
}

func (s *Store) SetUserRepoIDs(userID string, ids []string) error {
	return s.setJSON(userReposKey(userID), ids)
}

func (s *Store) ReposForUser(userID string) ([]Repository, error) {
	ids, err := s.UserRepoIDs(userID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = repoKey(id)
	}
	values, err := s.kv.MGet(keys)
	if err != nil {
		return nil, err
	}
	var repos []Repository
	for i, raw := range values {
		if raw == nil {
			continue
		}
		var repo Repository
		if err := json.Unmarshal(raw, &repo); err != nil {
			return nil, fmt.Errorf("failed to decode repository %s: %w", ids[i], err)
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// Chat records

func (s *Store) PutChat(chat *Chat) error {
	return s.setJSON(chatKey(chat.ID), chat)
}

func (s *Store) GetChat(id string) (*Chat, error) {
	var chat Chat
	found, err := s.getJSON(chatKey(id), &chat)
	if err != nil || !found {
		return nil, err
	}
	return &chat, nil
}

func (s *Store) DeleteChat(id string) error {
	if err := s.kv.Del(chatMessagesKey(id)); err != nil {
		return err
	}
	return s.kv.Del(chatKey(id))
}

func (s *Store) AddRepoChat(repoID, chatID string) error {
	ids, err := s.getIDList(repoChatsKey(repoID))
	if err != nil {
		return err
	}
	return s.setJSON(repoChatsKey(repoID), append(ids, chatID))
}

func (s *Store) RepoChatIDs(repoID string) ([]string, error) {
	return s.getIDList(repoChatsKey(repoID))
}

func (s *Store) DeleteRepoChatList(repoID string) error {
	return s.kv.Del(repoChatsKey(repoID))
}

func (s *Store) ChatsForRepo(repoID string) ([]Chat, error) {
	ids, err := s.RepoChatIDs(repoID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = chatKey(id)
	}
	values, err := s.kv.MGet(keys)
	if err != nil {
		return nil, err
	}
	var chats []Chat
	for i, raw := range values {
		if raw == nil {
			continue
		}
		var chat Chat
		if err := json.Unmarshal(raw, &chat); err != nil {
			return nil, fmt.Errorf("failed to decode chat %s: %w", ids[i], err)
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

// Message records

func (s *Store) PutMessage(msg *Message) error {
	return s.setJSON(messageKey(msg.ID), msg)
}

func (s *Store) DeleteMessage(id string) error {
	return s.kv.Del(messageKey(id))
}

// AppendChatMessages records message ids on the chat's ordered list. The
// caller is responsible for serializing appends to the same chat.
func (s *Store) AppendChatMessages(chatID string, messageIDs ...string) error {
	ids, err := s.getIDList(chatMessagesKey(chatID))
	if err != nil {
		return err
	}
	return s.setJSON(chatMessagesKey(chatID), append(ids, messageIDs...))
}

func (s *Store) ChatMessageIDs(chatID string) ([]string, error) {
	return s.getIDList(chatMessagesKey(chatID))
}

func (s *Store) MessagesForChat(chatID string) ([]Message, error) {
	ids, err := s.ChatMessageIDs(chatID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = messageKey(id)
	}
	values, err := s.kv.MGet(keys)
	if err != nil {
		return nil, err
	}
	var messages []Message
	for i, raw := range values {
		if raw == nil {
			continue
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", ids[i], err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// LastMessages returns up to n of the chat's most recent messages, oldest
// first within that window.
func (s *Store) LastMessages(chatID string, n int) ([]Message, error) {
	messages, err := s.MessagesForChat(chatID)
	if err != nil {
		return nil, err
	}
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return messages, nil
}

// Chunk set records

// PutChunkSet replaces the repository's full chunk set in a single write, so
// a reader either sees the previous complete set or the new one.
func (s *Store) PutChunkSet(repoID string, chunks []Chunk) error {
	return s.setJSON(embeddingsKey(repoID), chunks)
}

// GetChunkSet returns the stored set and whether one exists.
func (s *Store) GetChunkSet(repoID string) ([]Chunk, bool, error) {
	var chunks []Chunk
	found, err := s.getJSON(embeddingsKey(repoID), &chunks)
	if err != nil {
		return nil, false, err
	}
	return chunks, found, nil
}

func (s *Store) DeleteChunkSet(repoID string) error {
	return s.kv.Del(embeddingsKey(repoID))
}
