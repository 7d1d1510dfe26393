package store

// Key construction lives here so callers address entities by kind and id only.
// The encoded forms never leak outside this package.

func userKey(id string) string          { return "user:" + id }
func userEmailKey(email string) string  { return "user:email:" + email }
func userReposKey(userID string) string { return "user:" + userID + ":repos" }

func repoKey(id string) string      { return "repo:" + id }
func repoChatsKey(id string) string { return "repo:" + id + ":chats" }

func chatKey(id string) string         { return "chat:" + id }
func chatMessagesKey(id string) string { return "chat:" + id + ":messages" }

func messageKey(id string) string { return "message:" + id }

func embeddingsKey(repoID string) string { return "embeddings:" + repoID }
