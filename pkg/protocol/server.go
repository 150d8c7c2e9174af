package protocol

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const commandBuffer = 256

// Server binds the two well-known engine endpoints: the market publish
// channel and the control command channel. Both are websocket servers
// owned by the engine process; controllers and observers dial in.
type Server struct {
	marketAddr  string
	controlAddr string

	hub      *Hub
	commands chan Command
	upgrader websocket.Upgrader
}

func NewServer(marketAddr, controlAddr string, tape *Tape) *Server {
	return &Server{
		marketAddr:  marketAddr,
		controlAddr: controlAddr,
		hub:         NewHub(tape),
		commands:    make(chan Command, commandBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the publish side of the market channel.
func (s *Server) Hub() *Hub { return s.hub }

// Commands returns the stream of parsed control commands.
func (s *Server) Commands() <-chan Command { return s.commands }

// Run binds both endpoints and serves until the context is cancelled.
// A bind failure is returned immediately and is fatal to the engine.
func (s *Server) Run(ctx context.Context) error {
	marketLn, err := net.Listen("tcp", s.marketAddr)
	if err != nil {
		return err
	}
	controlLn, err := net.Listen("tcp", s.controlAddr)
	if err != nil {
		marketLn.Close()
		return err
	}

	marketMux := http.NewServeMux()
	marketMux.Handle("/market", s.hub)
	marketSrv := &http.Server{Handler: marketMux}

	controlMux := http.NewServeMux()
	controlMux.HandleFunc("/control", s.handleControl)
	controlSrv := &http.Server{Handler: controlMux}

	zap.S().Infow("engine endpoints bound",
		"market", marketLn.Addr().String(),
		"control", controlLn.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := marketSrv.Serve(marketLn); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := controlSrv.Serve(controlLn); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		marketSrv.Shutdown(shutCtx)
		controlSrv.Shutdown(shutCtx)
		return nil
	})
	return g.Wait()
}

// handleControl reads command lines from a controller connection and feeds
// the parsed commands to the engine. Malformed and unknown commands are
// dropped silently; duplicates and out-of-order commands are accepted.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Debugf("control upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	zap.S().Infow("controller connected", "remote", conn.RemoteAddr().String())

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.S().Infow("controller disconnected", "remote", conn.RemoteAddr().String())
			return
		}
		cmd, err := Parse(string(msg))
		if err != nil {
			zap.S().Debugf("dropping command %q: %v", msg, err)
			continue
		}
		select {
		case s.commands <- cmd:
		case <-r.Context().Done():
			return
		}
	}
}
