package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/codefionn/fileexplorer/internal/logger"
)

// ErrTransportClosed is returned by transports after Close.
var ErrTransportClosed = errors.New("transport closed")

// Transport carries messages between the plugin and the host. Send may be
// called from many goroutines; Receive is called by one reader at a time and
// returns io.EOF once the peer goes away.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
	Receive() (*Message, error)
	Close() error
}

// maxLineSize bounds one newline-delimited message on a stream transport.
const maxLineSize = 4 << 20

// StreamTransport exchanges newline-delimited JSON messages over a reader and
// a writer, typically the stdio pipes of a host that spawned the plugin.
type StreamTransport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	log    *logger.Logger

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once

	// lines is fed by a reader goroutine so Receive can return on Close even
	// when the underlying Read cannot be interrupted, as with os.Stdin.
	lines     chan lineResult
	startRead sync.Once
}

type lineResult struct {
	line []byte
	err  error
}

// NewStreamTransport creates a transport over r and w. If either implements
// io.Closer it is closed by Close.
func NewStreamTransport(r io.Reader, w io.Writer) *StreamTransport {
	t := &StreamTransport{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
		log:    logger.Global().WithPrefix("stream"),
		closed: make(chan struct{}),
		lines:  make(chan lineResult),
	}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	} else if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// Send writes one message followed by a newline.
func (t *StreamTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive reads the next well-formed message. Lines that are not valid JSON
// are skipped. After Close it returns io.EOF without waiting for a pending
// read of the underlying reader.
func (t *StreamTransport) Receive() (*Message, error) {
	t.startRead.Do(func() { go t.readLines() })

	for {
		var res lineResult
		select {
		case <-t.closed:
			return nil, io.EOF
		case res = <-t.lines:
		}
		if res.err != nil {
			select {
			case <-t.closed:
				return nil, io.EOF
			default:
			}
			return nil, res.err
		}
		if len(res.line) == 0 {
			continue
		}

		msg, err := ParseMessage(res.line)
		if err != nil {
			t.log.Debug("skipping malformed line: %v", err)
			continue
		}
		return msg, nil
	}
}

// readLines forwards lines until a read fails or the transport is closed.
// A read blocked at Close is abandoned; its result is discarded.
func (t *StreamTransport) readLines() {
	for {
		line, err := t.readLine()
		select {
		case t.lines <- lineResult{line: line, err: err}:
		case <-t.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

func (t *StreamTransport) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := t.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxLineSize {
			return nil, fmt.Errorf("message exceeds %d bytes", maxLineSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}

// Close closes the underlying reader or writer if it can be closed.
func (t *StreamTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		if t.closer != nil {
			err = t.closer.Close()
		}
	})
	return err
}
