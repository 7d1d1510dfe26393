package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"repochat/internal/auth"
	"repochat/internal/core"
	"repochat/internal/rag"
	"repochat/internal/store"
)

type APIHandler struct {
	userService *core.UserService
	repoService *core.RepoService
	chatService *core.ChatService
	jwtSecret   string
}

func NewAPIHandler(users *core.UserService, repos *core.RepoService, chats *core.ChatService, jwtSecret string) *APIHandler {
	return &APIHandler{
		userService: users,
		repoService: repos,
		chatService: chats,
		jwtSecret:   jwtSecret,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(h.jwtSecret, tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.userService.GetUser(userID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", userID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		http.Error(w, "Email, password, and name are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", req.Email, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.userService.CreateUser(req.Email, req.Name, hashedPassword)
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error creating user %s: %v", req.Email, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]*store.User{"user": user})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Email, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(h.jwtSecret, user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.ID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateRepositoryRequest struct {
	URL string `json:"url"`
}

func (h *APIHandler) CreateRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req CreateRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "Repository URL is required", http.StatusBadRequest)
		return
	}

	repo, err := h.repoService.CreateRepository(userID, req.URL)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRepoURL) || errors.Is(err, core.ErrRepoExists) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error creating repository for user %s: %v", userID, err)
		http.Error(w, "Failed to create repository", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]*store.Repository{"repository": repo})
}

func (h *APIHandler) ListRepositoriesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	repos, err := h.repoService.ListRepositories(userID)
	if err != nil {
		log.Printf("Error listing repositories for user %s: %v", userID, err)
		http.Error(w, "Failed to list repositories", http.StatusInternalServerError)
		return
	}
	if repos == nil {
		repos = []store.Repository{}
	}
	json.NewEncoder(w).Encode(map[string][]store.Repository{"repositories": repos})
}

func (h *APIHandler) GetRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	repoID := chi.URLParam(r, "repoID")

	repo, err := h.repoService.GetRepository(userID, repoID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Repository not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting repository %s for user %s: %v", repoID, userID, err)
		http.Error(w, "Failed to get repository", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]*store.Repository{"repository": repo})
}

func (h *APIHandler) DeleteRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	repoID := chi.URLParam(r, "repoID")

	if err := h.repoService.DeleteRepository(userID, repoID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Repository not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting repository %s for user %s: %v", repoID, userID, err)
		http.Error(w, "Failed to delete repository", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Repository deleted successfully"})
}

type CreateChatRequest struct {
	RepoID string `json:"repoId"`
	Title  string `json:"title"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.RepoID == "" {
		http.Error(w, "Repository id is required", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.CreateChat(userID, req.RepoID, req.Title)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Repository not found", http.StatusNotFound)
			return
		}
		log.Printf("Error creating chat for user %s: %v", userID, err)
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]*store.Chat{"chat": chat})
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	repoID := chi.URLParam(r, "repoID")

	chats, err := h.chatService.ListChats(userID, repoID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Repository not found", http.StatusNotFound)
			return
		}
		log.Printf("Error listing chats for user %s, repo %s: %v", userID, repoID, err)
		http.Error(w, "Failed to list chats", http.StatusInternalServerError)
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	json.NewEncoder(w).Encode(map[string][]store.Chat{"chats": chats})
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	chatID := chi.URLParam(r, "chatID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content is required", http.StatusBadRequest)
		return
	}

	userMsg, assistantMsg, err := h.chatService.PostMessage(userID, chatID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			http.Error(w, "Chat not found", http.StatusNotFound)
		case errors.Is(err, core.ErrNotReady):
			http.Error(w, "Repository is still processing", http.StatusBadRequest)
		case errors.Is(err, rag.ErrEmptyIndex):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error posting message for user %s, chat %s: %v", userID, chatID, err)
			http.Error(w, "Failed to post message", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]*store.Message{
		"userMessage":      userMsg,
		"assistantMessage": assistantMsg,
	})
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	chatID := chi.URLParam(r, "chatID")

	messages, err := h.chatService.GetMessages(userID, chatID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting messages for user %s, chat %s: %v", userID, chatID, err)
		http.Error(w, "Failed to get messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	json.NewEncoder(w).Encode(map[string][]store.Message{"messages": messages})
}
