// Package ws exposes content commands over a websocket. Every command runs
// on the simulation goroutine through the engine's Call handoff; the
// connection goroutines never touch game state.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"voxelcraft.ai/customcontent/internal/protocol"
)

// Caller runs fn on the simulation goroutine and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

type Executor interface {
	Execute(cmd protocol.CommandMsg) protocol.ResultMsg
}

type Server struct {
	sim  Caller
	exec Executor
	log  *log.Logger

	upgrader    websocket.Upgrader
	callTimeout time.Duration
	idleTimeout time.Duration
}

func NewServer(sim Caller, exec Executor, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		sim:  sim,
		exec: exec,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		callTimeout: 5 * time.Second,
		idleTimeout: 60 * time.Second,
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan protocol.ResultMsg, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case res := <-out:
					if err := writeJSON(conn, res); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.handle(ctx, msg)
			select {
			case out <- res:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-done
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) protocol.ResultMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return reject(protocol.CommandMsg{}, protocol.ErrProtoBadRequest, "malformed json")
	}
	if !protocol.IsCommandType(base.Type) {
		return reject(protocol.CommandMsg{Type: base.Type}, protocol.ErrProtoBadRequest, "unknown message type")
	}
	if base.ProtocolVersion != protocol.Version {
		return reject(protocol.CommandMsg{Type: base.Type}, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	cmd, err := protocol.DecodeCommand(msg)
	if err != nil {
		return reject(protocol.CommandMsg{Type: base.Type}, protocol.ErrBadRequest, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	var res protocol.ResultMsg
	if err := s.sim.Call(callCtx, func() { res = s.exec.Execute(cmd) }); err != nil {
		s.log.Printf("%s %s: %v", cmd.Type, cmd.Name, err)
		return reject(cmd, protocol.ErrWorldBusy, "server busy or stopping")
	}
	return res
}

func reject(cmd protocol.CommandMsg, code, msg string) protocol.ResultMsg {
	res := protocol.NewResult(cmd)
	res.Code = code
	res.Message = msg
	return res
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}
