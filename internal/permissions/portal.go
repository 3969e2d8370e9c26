package permissions

import (
	"context"

	"github.com/godbus/dbus/v5"

	"deskscribe/internal/domain"
)

const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenCastIface = "org.freedesktop.portal.ScreenCast"
)

// PortalChecker resolves the screen/system-audio capture grant through the
// XDG Desktop Portal. The portal itself shows the interactive dialog when a
// stream is created; here we verify the ScreenCast interface is present and
// answering, which is the grant surface available ahead of time.
type PortalChecker struct {
	// connect is swappable for tests.
	connect func() (portalConn, error)
}

type portalConn interface {
	ScreenCastVersion(ctx context.Context) (uint32, error)
	Close() error
}

func NewPortalChecker() *PortalChecker {
	return &PortalChecker{connect: connectSessionBus}
}

func (c *PortalChecker) State(ctx context.Context) domain.PermissionState {
	state, _ := c.probe(ctx)
	return state
}

func (c *PortalChecker) Request(ctx context.Context) (domain.PermissionState, error) {
	return c.probe(ctx)
}

func (c *PortalChecker) probe(ctx context.Context) (domain.PermissionState, error) {
	conn, err := c.connect()
	if err != nil {
		// No session bus at all: status cannot be determined here.
		return domain.PermissionUnknown, err
	}
	defer conn.Close()

	version, err := conn.ScreenCastVersion(ctx)
	if err != nil || version == 0 {
		return domain.PermissionDenied, nil
	}
	return domain.PermissionGranted, nil
}

type sessionBus struct {
	conn *dbus.Conn
}

func connectSessionBus() (portalConn, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &sessionBus{conn: conn}, nil
}

func (b *sessionBus) ScreenCastVersion(ctx context.Context) (uint32, error) {
	obj := b.conn.Object(portalService, dbus.ObjectPath(portalPath))

	var variant dbus.Variant
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0,
		screenCastIface, "version").Store(&variant)
	if err != nil {
		return 0, err
	}

	version, ok := variant.Value().(uint32)
	if !ok {
		return 0, nil
	}
	return version, nil
}

func (b *sessionBus) Close() error {
	// The session bus connection is shared process-wide; leave it open.
	return nil
}
