/*
 *	devbridge exposes host device capabilities over method channels.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/status"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// CallRequest is the body of POST /call
type CallRequest struct {
	Channel   string `json:"channel"`
	Method    string `json:"method"`
	Arguments any    `json:"arguments"`
}

// CallResponse is the body returned by POST /call
type CallResponse struct {
	Type    string `json:"type"`
	Result  any    `json:"result,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Call response types
const (
	CallSuccess        = "success"
	CallError          = "error"
	CallNotImplemented = "notImplemented"
)

// Router returns an HTTP handler exposing the server:
//
//	GET  /health    liveness probe
//	GET  /channels  registered channel names
//	POST /call      one call, JSON in and out; waits for deferred results
//	GET  /ws        WebSocket carrying a codec stream, as a TCP connection would
func (s *Server) Router(cf codec.CodecFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/channels", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Channels())
	}).Methods(http.MethodGet)
	r.HandleFunc("/call", s.handleCall).Methods(http.MethodPost)
	r.Handle("/ws", s.wsServer(cf))
	return r
}

// ListenAndServe serves Router on addr until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string, cf codec.CodecFunc) error {
	server := &http.Server{
		Addr: addr,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		Handler:           s.Router(cf),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("http listening", zap.String("addr", addr))
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) wsServer(cf codec.CodecFunc) websocket.Server {
	return websocket.Server{
		Config: websocket.Config{
			Version: websocket.ProtocolVersionHybi13,
		},
		Handler: func(c *websocket.Conn) {
			// Binary codecs need binary frames
			c.PayloadType = websocket.BinaryFrame
			s.handleConn(c.Request().Context(), cf(c))
		},
	}
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CallResponse{
			Type:    CallError,
			Code:    status.CodeInvalidArguments,
			Message: "malformed call: " + err.Error(),
		})
		return
	}

	val, err := s.Invoke(r.Context(), req.Channel, req.Method, req.Arguments)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CallResponse{Type: CallSuccess, Result: val})
	case errors.Is(err, status.ErrNotImplemented):
		writeJSON(w, http.StatusNotImplemented, CallResponse{Type: CallNotImplemented})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The caller went away; nobody is reading the answer
		s.log.Debug("http call abandoned", zap.String("channel", req.Channel), zap.String("method", req.Method))
	default:
		se := status.FromError(err)
		code := http.StatusInternalServerError
		if se.Code == status.CodeInvalidArguments {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, CallResponse{
			Type:    CallError,
			Code:    se.Code,
			Message: se.Message,
			Details: se.Details,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
