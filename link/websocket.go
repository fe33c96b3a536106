package link

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxFrameSize = 64 * 1024
	// CommandsPath is the HTTP path the Listener upgrades on.
	CommandsPath = "/commands"
)

type wsConn struct {
	conn   *websocket.Conn
	in     chan []byte
	done   chan struct{}
	once   sync.Once
	sendMu sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	c := &wsConn{
		conn: conn,
		in:   make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go c.readPump()
	return c
}

func (c *wsConn) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(wsMaxFrameSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[link] websocket read error: %v", err)
			}
			return
		}
		select {
		case c.in <- message:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.sendMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	err := c.conn.WriteMessage(websocket.TextMessage, frame)
	c.sendMu.Unlock()
	if err != nil {
		c.Close()
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (c *wsConn) Recv(timeout time.Duration) ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b := <-c.in:
		return b, nil
	case <-c.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.sendMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.sendMu.Unlock()
		c.conn.Close()
	})
	return nil
}

// Dial connects to a Listener at url, e.g. ws://127.0.0.1:5558/commands.
func Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("link: dial %s: %w", url, err)
	}
	return newWSConn(conn), nil
}

// Listener accepts websocket peers. Only one peer is served at a time;
// further upgrade attempts are refused while a peer is attached.
type Listener struct {
	upgrader websocket.Upgrader
	srv      *http.Server
	ln       net.Listener
	accepted chan Conn

	mu        sync.Mutex
	active    *wsConn
	upgrading bool
}

// Listen starts serving on addr.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("link: listen %s: %w", addr, err)
	}
	l := NewListener()
	l.ln = ln
	l.srv = &http.Server{Handler: l, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[link] serve: %v", err)
		}
	}()
	return l, nil
}

// NewListener returns a Listener usable as an http.Handler without binding
// a socket of its own.
func NewListener() *Listener {
	return &Listener{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		accepted: make(chan Conn, 1),
	}
}

func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != CommandsPath {
		http.NotFound(w, r)
		return
	}
	// The slot is claimed before upgrading so only one of several
	// simultaneous peers gets through.
	l.mu.Lock()
	if l.upgrading || (l.active != nil && !l.active.closed()) {
		l.mu.Unlock()
		http.Error(w, "peer already attached", http.StatusConflict)
		return
	}
	l.upgrading = true
	l.mu.Unlock()

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.mu.Lock()
		l.upgrading = false
		l.mu.Unlock()
		log.Printf("[link] upgrade: %v", err)
		return
	}
	c := newWSConn(conn)
	l.mu.Lock()
	l.active = c
	l.upgrading = false
	l.mu.Unlock()

	select {
	case l.accepted <- c:
	default:
		c.Close()
	}
}

// Accept waits for the next peer.
func (l *Listener) Accept(ctx context.Context) (Conn, error) {
	select {
	case c := <-l.accepted:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) Close() error {
	l.mu.Lock()
	if l.active != nil {
		l.active.Close()
	}
	l.mu.Unlock()
	if l.srv != nil {
		return l.srv.Close()
	}
	return nil
}

func (c *wsConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
