package weboffice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type tokenState struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func DefaultTokenStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".hourgrid", "weboffice-token.json"), nil
}

// AccessTokenFromStateFile reads the bearer token stored by the login flow.
func AccessTokenFromStateFile(path string, now time.Time) (string, error) {
	content, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("read token state file: %w", err)
	}

	var state tokenState
	if err := json.Unmarshal(content, &state); err != nil {
		return "", fmt.Errorf("decode token state file: %w", err)
	}

	return accessTokenFromState(state, now)
}

func accessTokenFromState(state tokenState, now time.Time) (string, error) {
	token := strings.TrimSpace(state.AccessToken)
	if token == "" {
		return "", errors.New("token state has no access token")
	}
	if !state.ExpiresAt.IsZero() && !now.Before(state.ExpiresAt) {
		return "", fmt.Errorf("access token expired at %s", state.ExpiresAt.Format(time.RFC3339))
	}
	return token, nil
}
