package auth

import (
	"consult-chat/contract"
	"consult-chat/errors"
	"context"
	"fmt"
	"os"
	"strings"
)

// StaticSource serves a token handed over by the identity provider.
type StaticSource struct {
	token string
}

func NewStaticSource(token string) StaticSource {
	return StaticSource{token: token}
}

func (s StaticSource) Credential(_ context.Context) (string, error) {
	token := strings.TrimSpace(s.token)
	if token == "" {
		return "", errors.ErrAuthRequired
	}
	return token, nil
}

// FileSource reads the token from disk on every call so a refreshed file is
// picked up by the next connection attempt.
type FileSource struct {
	path string
}

func NewFileSource(path string) FileSource {
	return FileSource{path: path}
}

func (s FileSource) Credential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrAuthRequired, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", errors.ErrAuthRequired, s.path)
	}
	return token, nil
}

// Chain returns the first credential any source yields.
type Chain []contract.CredentialSource

func (c Chain) Credential(ctx context.Context) (string, error) {
	for _, source := range c {
		token, err := source.Credential(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, errors.ErrAuthRequired) {
			return "", err
		}
	}
	return "", errors.ErrAuthRequired
}
