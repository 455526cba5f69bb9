// Package rpctest serves canned Solana JSON-RPC responses for tests.
package rpctest

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
)

// Handler answers one JSON-RPC method. A non-nil error becomes a JSON-RPC error.
type Handler func(params json.RawMessage) (interface{}, error)

type Server struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
}

type request struct {
	Id     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Handle(method string, handler Handler) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	return s
}

func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Server) Client() *rpc.Client {
	return rpc.New(s.URL)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	handler, ok := s.handlers[req.Method]
	s.calls[req.Method]++
	s.mu.Unlock()

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.Id,
	}
	if !ok {
		response["error"] = map[string]interface{}{"code": -32601, "message": "method not found: " + req.Method}
	} else if result, err := handler(req.Params); err != nil {
		response["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
	} else {
		response["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// Account renders account data in the getAccountInfo wire shape; nil data renders null.
func Account(data []byte, owner string) interface{} {
	if data == nil {
		return nil
	}
	return map[string]interface{}{
		"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
		"executable": false,
		"lamports":   1_000_000,
		"owner":      owner,
		"rentEpoch":  0,
		"space":      len(data),
	}
}

// WithContext wraps value in the {context, value} envelope.
func WithContext(slot uint64, value interface{}) interface{} {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": slot},
		"value":   value,
	}
}
