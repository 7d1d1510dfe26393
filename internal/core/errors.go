package core

import "errors"

var (
	// ErrNotFound covers repositories and chats that do not exist or belong
	// to another user.
	ErrNotFound = errors.New("not found")
	// ErrRepoExists rejects a second repository with the same owner and name
	// for one user.
	ErrRepoExists = errors.New("repository already added")
	// ErrInvalidRepoURL rejects URLs that are not GitHub repository URLs.
	ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")
	// ErrNotReady rejects queries against a repository that has not finished
	// ingestion successfully.
	ErrNotReady = errors.New("repository is not ready")
)
