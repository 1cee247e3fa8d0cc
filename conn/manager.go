// Package conn implements the Connection Manager: handshake, socket I/O,
// reconnect-with-backoff, and liveness tracking over a single IRC session.
package conn

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	denet "github.com/hlandau/goutils/net"
	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/transport"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("tern.conn")

// Config configures a Manager's handshake, transport, reconnect backoff,
// and liveness deadline.
type Config struct {
	Address           string
	Transport         transport.Config
	Nick              string
	User              string
	RealName          string
	Password          string
	Backoff           denet.Backoff
	ReconnectInterval time.Duration // floor wait between reconnect attempts
	Timeout           time.Duration // liveness deadline; 0 disables the check
	dialOverride      func() (net.Conn, error)
}

// Manager owns the lifecycle of one IRC session: it dials, performs the
// PASS/USER/NICK handshake, delivers inbound messages, and transparently
// reconnects on socket or liveness failure, restarting the handshake each
// time.
type Manager struct {
	cfg Config

	writeMu sync.Mutex
	conn    net.Conn

	inbound chan *wire.Message

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New constructs a Manager. Call Run to start connecting; inbound messages
// arrive on Messages().
func New(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		inbound:  make(chan *wire.Message, 256),
		shutdown: make(chan struct{}),
	}
}

// Messages returns the channel of successfully parsed inbound messages.
// It is closed when Run returns.
func (m *Manager) Messages() <-chan *wire.Message {
	return m.inbound
}

// Nick returns the nick this manager registers with. The bot's actual nick
// may drift from this after a 433 retry (handled at the protocol layer, not
// here); callers needing the live nick should track NICK acknowledgements
// themselves.
func (m *Manager) Nick() string {
	return m.cfg.Nick
}

// Run dials, handshakes, and services the connection until ctx is
// cancelled or Close is called, waiting m.cfg.ReconnectInterval and then
// consulting m.cfg.Backoff between attempts. It returns the reason Run
// stopped.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.inbound)

	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.shutdown:
			return nil
		default:
		}

		if !first {
			if m.cfg.ReconnectInterval > 0 {
				select {
				case <-time.After(m.cfg.ReconnectInterval):
				case <-ctx.Done():
					return ctx.Err()
				case <-m.shutdown:
					return nil
				}
			}
			if !m.cfg.Backoff.Sleep() {
				return fmt.Errorf("conn: maximum reconnection attempts reached")
			}
		}
		first = false

		c, err := m.dial()
		if err != nil {
			log.Errore(err, "dial failed, retrying")
			continue
		}

		m.setConn(c)
		err = m.session(ctx, c)
		m.setConn(nil)
		c.Close()

		if err == errShutdown {
			return nil
		}
		log.Warnf("connection lost: %v", err)
	}
}

func (m *Manager) dial() (net.Conn, error) {
	if m.cfg.dialOverride != nil {
		return m.cfg.dialOverride()
	}
	return transport.Dial(m.cfg.Address, m.cfg.Transport)
}

func (m *Manager) setConn(c net.Conn) {
	m.writeMu.Lock()
	m.conn = c
	m.writeMu.Unlock()
}

var errShutdown = fmt.Errorf("conn: manager closed")

// session performs the handshake and runs the liveness-tracked read loop
// over one live connection, returning when the connection fails.
func (m *Manager) session(ctx context.Context, c net.Conn) error {
	if err := m.handshake(); err != nil {
		return err
	}

	alive := newLivenessTracker(m.cfg.Timeout)
	defer alive.stop()

	readErr := make(chan error, 1)
	go func() {
		readErr <- m.readLoop(c, alive)
	}()

	select {
	case <-ctx.Done():
		c.Close()
		<-readErr
		return ctx.Err()
	case <-m.shutdown:
		c.Close()
		<-readErr
		return errShutdown
	case <-alive.timedOut():
		c.Close()
		<-readErr
		return fmt.Errorf("conn: liveness timeout exceeded")
	case err := <-readErr:
		return err
	}
}

func (m *Manager) handshake() error {
	if m.cfg.Password != "" {
		if err := m.Send(&wire.Message{Command: "PASS", Args: []string{m.cfg.Password}}); err != nil {
			return err
		}
	}
	realName := m.cfg.RealName
	if realName == "" {
		realName = m.cfg.Nick
	}
	if err := m.Send(&wire.Message{
		Command:  "USER",
		Args:     []string{m.cfg.User, "8", "*"},
		Trailing: realName,
	}); err != nil {
		return err
	}
	return m.Send(&wire.Message{Command: "NICK", Args: []string{m.cfg.Nick}})
}

func (m *Manager) readLoop(c net.Conn, alive *livenessTracker) error {
	r := bufio.NewReader(c)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		alive.touch()

		msg, perr := wire.Parse(line)
		if perr != nil {
			log.Warnf("dropping malformed line: %v", perr)
			continue
		}

		if msg.Command == "001" {
			m.cfg.Backoff.Reset()
		}

		select {
		case m.inbound <- msg:
		case <-m.shutdown:
			return errShutdown
		}
	}
}

// Send writes msg to the live connection, blocking until the OS accepts it
// into its send buffer. writeMu totally orders outbound sends so concurrent
// callers can't interleave partial writes.
func (m *Manager) Send(msg *wire.Message) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if m.conn == nil {
		return fmt.Errorf("conn: not connected")
	}
	line := msg.Serialize()
	_, err := io.WriteString(m.conn, line)
	if err != nil {
		log.Errore(err, "write failed")
		return err
	}
	log.Debugf("TX: %s", line)
	return nil
}

// Close permanently stops the manager; Run returns after the current
// connection (if any) is torn down.
func (m *Manager) Close() error {
	m.shutdownOnce.Do(func() {
		close(m.shutdown)
		m.writeMu.Lock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.writeMu.Unlock()
	})
	return nil
}
