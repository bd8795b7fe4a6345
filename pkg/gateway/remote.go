package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zerofisher/pktdash/pkg/value"
)

const writeWait = 5 * time.Second

// ServePath is where Serve is mounted by the serve command.
const ServePath = "/ws"

// request and response are the websocket envelopes.
type request struct {
	ID      uint64  `json:"id"`
	Command Command `json:"command"`
	Params  Params  `json:"params"`
}

type response struct {
	ID      uint64       `json:"id"`
	Payload *value.Value `json:"payload,omitempty"`
	Error   *Error       `json:"error,omitempty"`
}

func (r response) result() Result {
	if r.Error != nil {
		return Fail(r.Error)
	}
	if r.Payload == nil {
		return Ok(value.Null())
	}
	return Ok(*r.Payload)
}

// Remote is a Gateway that forwards calls over a websocket connection.
// Calls may be issued concurrently; responses are matched by id.
type Remote struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Result
	err     error // set once the connection is gone

	done chan struct{}
}

// Dial connects to a gateway exposed by Serve.
func Dial(ctx context.Context, url string) (*Remote, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, Errorf(KindTransport, "dial %s: %v", url, err)
	}
	r := &Remote{
		conn:    conn,
		pending: make(map[uint64]chan Result),
		done:    make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// Call implements Gateway.
func (r *Remote) Call(ctx context.Context, cmd Command, p Params) Result {
	ch := make(chan Result, 1)

	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return Fail(Errorf(KindTransport, "%s: %v", cmd, err))
	}
	r.nextID++
	id := r.nextID
	r.pending[id] = ch
	r.mu.Unlock()

	r.writeMu.Lock()
	r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := r.conn.WriteJSON(request{ID: id, Command: cmd, Params: p})
	r.writeMu.Unlock()
	if err != nil {
		r.forget(id)
		return Fail(Errorf(KindTransport, "%s: %v", cmd, err))
	}

	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		r.forget(id)
		return Fail(Errorf(KindTransport, "%s: %v", cmd, ctx.Err()))
	}
}

func (r *Remote) forget(id uint64) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Remote) readLoop() {
	defer close(r.done)
	for {
		var resp response
		if err := r.conn.ReadJSON(&resp); err != nil {
			r.failAll(err)
			return
		}
		r.mu.Lock()
		ch, ok := r.pending[resp.ID]
		delete(r.pending, resp.ID)
		r.mu.Unlock()
		if ok {
			ch <- resp.result()
		}
	}
}

// failAll fails every in-flight call once the connection is lost.
func (r *Remote) failAll(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		err = errors.New("connection closed")
	}
	r.mu.Lock()
	r.err = err
	pending := r.pending
	r.pending = make(map[uint64]chan Result)
	r.mu.Unlock()
	for _, ch := range pending {
		ch <- Fail(Errorf(KindTransport, "%v", err))
	}
}

// Close shuts the connection down. In-flight calls fail with a transport
// error.
func (r *Remote) Close() error {
	r.writeMu.Lock()
	r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = r.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
	err := r.conn.Close()
	<-r.done
	return err
}
