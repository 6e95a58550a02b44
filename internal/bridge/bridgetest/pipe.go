// Package bridgetest provides an in-memory transport and a scriptable host
// for exercising bridge clients without a real embedding.
package bridgetest

import (
	"context"
	"io"
	"sync"

	"github.com/codefionn/fileexplorer/internal/bridge"
)

// PipeTransport is one end of an in-memory message pipe
type PipeTransport struct {
	in         <-chan *bridge.Message
	out        chan<- *bridge.Message
	closed     chan struct{}
	peerClosed <-chan struct{}
	closeOnce  sync.Once
}

// Pipe returns two connected transports. Messages sent on one are received
// on the other, in order.
func Pipe() (plugin, host *PipeTransport) {
	toHost := make(chan *bridge.Message, 64)
	toPlugin := make(chan *bridge.Message, 64)
	pluginClosed := make(chan struct{})
	hostClosed := make(chan struct{})

	plugin = &PipeTransport{in: toPlugin, out: toHost, closed: pluginClosed, peerClosed: hostClosed}
	host = &PipeTransport{in: toHost, out: toPlugin, closed: hostClosed, peerClosed: pluginClosed}
	return plugin, host
}

// Send implements bridge.Transport
func (p *PipeTransport) Send(ctx context.Context, msg *bridge.Message) error {
	select {
	case <-p.closed:
		return bridge.ErrTransportClosed
	case <-p.peerClosed:
		return bridge.ErrTransportClosed
	default:
	}

	select {
	case p.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return bridge.ErrTransportClosed
	case <-p.peerClosed:
		return bridge.ErrTransportClosed
	}
}

// Receive implements bridge.Transport
func (p *PipeTransport) Receive() (*bridge.Message, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.closed:
		return nil, io.EOF
	case <-p.peerClosed:
		return nil, io.EOF
	}
}

// Close implements bridge.Transport
func (p *PipeTransport) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
