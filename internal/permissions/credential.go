package permissions

import (
	"context"
	"strings"

	"deskscribe/internal/domain"
)

// CredentialChecker resolves the speech-recognition grant. The recognizer is
// a remote streaming service, so access amounts to holding a usable API key.
type CredentialChecker struct {
	apiKey string
}

func NewCredentialChecker(apiKey string) *CredentialChecker {
	return &CredentialChecker{apiKey: apiKey}
}

func (c *CredentialChecker) State(_ context.Context) domain.PermissionState {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.PermissionDenied
	}
	return domain.PermissionGranted
}

func (c *CredentialChecker) Request(ctx context.Context) (domain.PermissionState, error) {
	// There is no interactive grant to request; the key is configured or not.
	return c.State(ctx), nil
}
