package keepalive

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	screenSaverName      = "org.freedesktop.ScreenSaver"
	screenSaverPath      = "/org/freedesktop/ScreenSaver"
	screenSaverInterface = "org.freedesktop.ScreenSaver"
	appName              = "wsignplay"
)

// Inhibitor keeps the host from blanking the screen
type Inhibitor interface {
	Inhibit(reason string) error
	Release() error
	SimulateActivity() error
	Close() error
}

// NoopInhibitor is used when no session bus is reachable
type NoopInhibitor struct{}

func (NoopInhibitor) Inhibit(string) error    { return nil }
func (NoopInhibitor) Release() error          { return nil }
func (NoopInhibitor) SimulateActivity() error { return nil }
func (NoopInhibitor) Close() error            { return nil }

// DBusClient defines the D-Bus calls the inhibitor makes.
// This abstraction allows us to mock D-Bus interactions in tests.
type DBusClient interface {
	// Call invokes method on the screensaver object and stores the reply in out
	Call(method string, out []interface{}, args ...interface{}) error
	// Close closes the D-Bus connection
	Close() error
}

// StdDBusClient is the real implementation using godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient creates a real D-Bus client connected to the session bus
func NewStdDBusClient() (*StdDBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

// Call invokes a method of org.freedesktop.ScreenSaver
func (c *StdDBusClient) Call(method string, out []interface{}, args ...interface{}) error {
	obj := c.conn.Object(screenSaverName, dbus.ObjectPath(screenSaverPath))
	call := obj.Call(screenSaverInterface+"."+method, 0, args...)
	if call.Err != nil {
		return call.Err
	}
	if len(out) > 0 {
		return call.Store(out...)
	}
	return nil
}

// Close closes the D-Bus connection
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// ScreenSaverInhibitor inhibits the freedesktop screensaver
type ScreenSaverInhibitor struct {
	client DBusClient

	mu     sync.Mutex
	cookie uint32
	held   bool
}

// NewScreenSaverInhibitor wraps a D-Bus client
func NewScreenSaverInhibitor(client DBusClient) *ScreenSaverInhibitor {
	return &ScreenSaverInhibitor{client: client}
}

// NewInhibitor connects to the session bus, falling back to a no-op inhibitor
// when there is none (e.g. a bare framebuffer kiosk).
func NewInhibitor(enabled bool, logger zerolog.Logger) Inhibitor {
	if !enabled {
		return NoopInhibitor{}
	}
	client, err := NewStdDBusClient()
	if err != nil {
		logger.Warn().Err(err).Msg("session bus unavailable, host screensaver stays untouched")
		return NoopInhibitor{}
	}
	return NewScreenSaverInhibitor(client)
}

// Inhibit takes the inhibit cookie. Inhibiting twice keeps the first cookie.
func (i *ScreenSaverInhibitor) Inhibit(reason string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.held {
		return nil
	}
	var cookie uint32
	if err := i.client.Call("Inhibit", []interface{}{&cookie}, appName, reason); err != nil {
		return fmt.Errorf("inhibit: %w", err)
	}
	i.cookie = cookie
	i.held = true
	return nil
}

// Release returns the inhibit cookie
func (i *ScreenSaverInhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.held {
		return nil
	}
	i.held = false
	if err := i.client.Call("UnInhibit", nil, i.cookie); err != nil {
		return fmt.Errorf("uninhibit: %w", err)
	}
	return nil
}

// SimulateActivity resets the host idle timer
func (i *ScreenSaverInhibitor) SimulateActivity() error {
	return i.client.Call("SimulateUserActivity", nil)
}

// Close releases the cookie and closes the bus connection
func (i *ScreenSaverInhibitor) Close() error {
	relErr := i.Release()
	if err := i.client.Close(); err != nil {
		return err
	}
	return relErr
}
