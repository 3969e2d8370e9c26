package permissions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deskscribe/internal/domain"
)

// Checker resolves the grant status for one permission kind. State is a
// cheap query of the current authorization; Request performs the single
// interactive round trip when the grant is not already held.
type Checker interface {
	State(ctx context.Context) domain.PermissionState
	Request(ctx context.Context) (domain.PermissionState, error)
}

// Gateway verifies the grants the pipeline depends on before any capture
// begins. Nothing is cached between calls; the user may revoke a grant
// externally at any time.
type Gateway struct {
	checkers map[domain.PermissionKind]Checker
	log      *zap.Logger
}

func NewGateway(log *zap.Logger, checkers map[domain.PermissionKind]Checker) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{checkers: checkers, log: log}
}

// Ensure resolves each requested kind, issuing at most one request per kind.
// It returns *domain.PermissionDeniedError naming the first refused kind.
func (g *Gateway) Ensure(ctx context.Context, kinds ...domain.PermissionKind) error {
	for _, kind := range kinds {
		checker, ok := g.checkers[kind]
		if !ok {
			return fmt.Errorf("no checker for permission %q", kind)
		}

		state := checker.State(ctx)
		g.log.Debug("permission state",
			zap.String("kind", string(kind)),
			zap.String("state", string(state)))
		if state == domain.PermissionGranted {
			continue
		}

		state, err := checker.Request(ctx)
		if err != nil {
			return fmt.Errorf("requesting %s permission: %w", kind, err)
		}
		if state != domain.PermissionGranted {
			g.log.Warn("permission refused", zap.String("kind", string(kind)))
			return &domain.PermissionDeniedError{Kind: kind}
		}
	}
	return nil
}
