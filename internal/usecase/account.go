package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/parley-chat/parley/internal/domain"
)

var ErrAlreadyRegistered = errors.New("user already registered")

// RegisterInput is the validated input for registering a user.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
}

// AccountUsecase handles registration and directory search. The
// directory is external to the synchronization write path; the user
// record it points at is the authoritative copy.
type AccountUsecase struct {
	summaries SummaryStore
	directory Directory
}

func NewAccountUsecase(summaries SummaryStore, directory Directory) *AccountUsecase {
	return &AccountUsecase{
		summaries: summaries,
		directory: directory,
	}
}

// Register creates the user record with an empty conversation list and
// the matching directory row.
func (uc *AccountUsecase) Register(ctx context.Context, input RegisterInput) (domain.Identity, error) {
	id := domain.Normalize(input.Email)

	_, err := uc.summaries.GetUser(ctx, id)
	if err == nil {
		return "", ErrAlreadyRegistered
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return "", err
	}

	rec := domain.UserRecord{
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if err := uc.summaries.PutUser(ctx, id, rec); err != nil {
		return "", err
	}

	entry := domain.DirectoryEntry{
		Name:      rec.DisplayName(),
		SafeEmail: id,
	}
	if err := uc.directory.Register(ctx, entry); err != nil {
		return "", err
	}

	return id, nil
}

// Exists reports whether a user record is present for the address.
func (uc *AccountUsecase) Exists(ctx context.Context, address string) (bool, error) {
	_, err := uc.summaries.GetUser(ctx, domain.Normalize(address))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return false, err
}

// Search queries the directory by name or safe-email prefix.
func (uc *AccountUsecase) Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error) {
	return uc.directory.Search(ctx, strings.TrimSpace(query))
}
