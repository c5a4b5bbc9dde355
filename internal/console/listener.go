package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/iammegalith/telnet"
	"github.com/pixil98/go-log"
	"github.com/sirupsen/logrus"
)

// TelnetListener accepts operator console sessions. It is meant to be
// bound to localhost; the console trusts whoever can reach the port.
type TelnetListener struct {
	port    uint16
	console *Console
}

func NewTelnetListener(port uint16, console *Console) *TelnetListener {
	return &TelnetListener{
		port:    port,
		console: console,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	connCtx, cancelConns := context.WithCancel(context.Background())

	handler := &telnetHandler{
		console:     l.console,
		logger:      log.GetLogger(ctx),
		connCtx:     connCtx,
		cancelConns: cancelConns,
	}

	svr := telnet.NewServer(fmt.Sprintf(":%d", l.port), handler)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			svr.Stop()
			handler.Stop()
		case <-done:
		}
	}()

	err := svr.ListenAndServe()
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("serving console on port %d: %w", l.port, err)
	}

	return nil
}

type telnetHandler struct {
	wg          sync.WaitGroup
	console     *Console
	logger      logrus.FieldLogger
	connCtx     context.Context
	cancelConns context.CancelFunc
}

func (h *telnetHandler) HandleTelnet(conn *telnet.Connection) {
	h.wg.Add(1)
	defer h.wg.Done()
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.Errorf("closing console connection: %s", err)
		}
	}()

	ctx := log.SetLogger(h.connCtx, h.logger)

	if err := h.console.RunSession(ctx, newCRLFReadWriter(conn)); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warnf("console session: %s", err)
	}
}

func (h *telnetHandler) Stop() {
	h.cancelConns()
	h.wg.Wait()
}
