// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jetilab/exbuscope/pkg/exbus"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Relay decoded events to WebSocket clients",
	Long: `Decode the bus live and broadcast every event as a JSON message to all
connected WebSocket clients at /events.

This turns one serial tap into a feed that several dashboards or loggers can
consume at once.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "listen", ":8080", "Listen address")
}

// wireEvent is the JSON shape sent to clients. Timestamps are RFC 3339 with
// nanoseconds so the wire-level spans survive the trip.
type wireEvent struct {
	Kind   string         `json:"kind"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Fields map[string]any `json:"fields,omitempty"`
}

// eventHub fans decoded events out to connected clients. Slow clients are
// dropped rather than allowed to stall the bus pump.
type eventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *eventHub) add(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	conn.Close()
}

func (h *eventHub) broadcast(payload []byte) {
	h.mu.Lock()
	var stalled []*websocket.Conn
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			stalled = append(stalled, conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range stalled {
		logger.Warn("dropping stalled client", "remote", conn.RemoteAddr())
		h.remove(conn)
	}
}

func (h *eventHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func runServe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	hub := newEventHub()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "err", err)
			return
		}
		logger.Info("client connected", "remote", ws.RemoteAddr(), "clients", hub.count()+1)

		ch := hub.add(ws)
		// Writer goroutine per client; the read loop only notices closes.
		go func() {
			for payload := range ch {
				if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
					hub.remove(ws)
					return
				}
			}
		}()
		go func() {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					logger.Info("client disconnected", "remote", ws.RemoteAddr())
					hub.remove(ws)
					return
				}
			}
		}()
	})

	decoder := exbus.NewDecoder()
	go func() {
		err := streamBytes(conn, func(b byte, start, end time.Time) error {
			for _, e := range decoder.DecodeByte(b, start, end) {
				payload, err := json.Marshal(wireEvent{
					Kind:   e.Kind.String(),
					Start:  e.Start,
					End:    e.End,
					Fields: marshalFields(e.Fields),
				})
				if err != nil {
					logger.Error("encoding event", "err", err)
					continue
				}
				hub.broadcast(payload)
			}
			return nil
		})
		logger.Error("bus read ended", "err", err)
	}()

	logger.Info("serving decoded events", "addr", serveAddr, "source", connInfo)
	fmt.Printf("Exbuscope - Event Relay\n")
	fmt.Printf("Source: %s\n", connInfo)
	fmt.Printf("Clients connect to ws://%s/events\n", serveAddr)

	return http.ListenAndServe(serveAddr, mux)
}

// marshalFields renders non-JSON-native field values as strings.
func marshalFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case exbus.Role:
			out[k] = v.String()
		case exbus.BlockType:
			out[k] = v.String()
		case exbus.SubPacketType:
			out[k] = v.String()
		case []byte:
			out[k] = fmt.Sprintf("% X", v)
		default:
			out[k] = v
		}
	}
	return out
}
