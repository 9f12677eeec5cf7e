package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trading-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// broadcastTopics are fanned out to every connection regardless of
// authentication.
var broadcastTopics = []events.Topic{
	events.TopicSwap, events.TopicOrder, events.TopicLiquidity, events.TopicDexUpdate,
}

// scopedTopics are only forwarded to a connection once it has
// authenticated, and only when the event's PrincipalID matches.
var scopedTopics = []events.Topic{
	events.TopicExchangeOrd, events.TopicAutoTrade, events.TopicAutoError, events.TopicAutoPaused,
}

type wsOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// websocket upgrades the connection and runs the connect/auth/subscribe
// protocol described by §6: one write pump draining a buffered send
// channel (gorilla/websocket forbids concurrent writers), and one read
// pump handling inbound control messages.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	send := make(chan any, 64)
	principal := ""
	if token := c.Query("token"); token != "" {
		if id, err := s.Auth.Verify(ctx, token); err == nil {
			principal = id
		}
	}

	go s.wsWritePump(conn, send, cancel)
	s.wsSubscribe(ctx, send, &principal)

	trySend(send, wsOutbound{Type: "connected", Data: gin.H{"authenticated": principal != ""}})

	s.wsReadLoop(conn, ctx, cancel, send, &principal)
}

func (s *Server) wsWritePump(conn *websocket.Conn, send <-chan any, cancel context.CancelFunc) {
	defer conn.Close()
	defer cancel()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[WS] write error: %v", err)
			return
		}
	}
}

// wsSubscribe starts one goroutine per topic this connection cares
// about; each exits when ctx is cancelled.
func (s *Server) wsSubscribe(ctx context.Context, send chan<- any, principal *string) {
	for _, topic := range broadcastTopics {
		ch, unsub := s.Gateway.Bus.Subscribe(topic, 16)
		go forwardBroadcast(ctx, topic, ch, unsub, send)
	}
	for _, topic := range scopedTopics {
		ch, unsub := s.Gateway.Bus.Subscribe(topic, 16)
		go forwardScoped(ctx, topic, ch, unsub, send, principal)
	}
}

func forwardBroadcast(ctx context.Context, topic events.Topic, ch <-chan any, unsub func(), send chan<- any) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			sendPayload(ctx, send, topic, payload)
		}
	}
}

func forwardScoped(ctx context.Context, topic events.Topic, ch <-chan any, unsub func(), send chan<- any, principal *string) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			scoped, ok := payload.(events.ScopedEvent)
			if !ok || *principal == "" || scoped.PrincipalID != *principal {
				continue
			}
			sendPayload(ctx, send, topic, scoped.Payload)
		}
	}
}

func sendPayload(ctx context.Context, send chan<- any, topic events.Topic, payload any) {
	if scoped, ok := payload.(events.ScopedEvent); ok {
		payload = scoped.Payload
	}
	select {
	case send <- wsOutbound{Type: string(topic), Data: payload}:
	case <-ctx.Done():
	default:
	}
}

type wsInbound struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

func (s *Server) wsReadLoop(conn *websocket.Conn, ctx context.Context, cancel context.CancelFunc, send chan any, principal *string) {
	var priceTicker *time.Ticker
	defer func() {
		if priceTicker != nil {
			priceTicker.Stop()
		}
	}()

	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "auth":
			if id, err := s.Auth.Verify(ctx, msg.Token); err == nil {
				*principal = id
				trySend(send, wsOutbound{Type: "connected", Data: gin.H{"authenticated": true}})
			} else {
				trySend(send, wsOutbound{Type: "error", Data: gin.H{"error": "invalid token"}})
			}
		case "subscribe_prices":
			if priceTicker != nil {
				continue
			}
			priceTicker = time.NewTicker(5 * time.Second)
			exchange, symbol, interval := msg.Exchange, msg.Symbol, msg.Interval
			go s.wsPushPrices(ctx, priceTicker, send, exchange, symbol, interval)
		case "analyze":
			resp, err := s.Gateway.Route(ctx, "ai", "analyze", map[string]any{
				"exchange": msg.Exchange, "symbol": msg.Symbol, "interval": msg.Interval,
			}, *principal)
			if err != nil {
				trySend(send, wsOutbound{Type: "error", Data: gin.H{"error": err.Error()}})
				continue
			}
			trySend(send, wsOutbound{Type: "analyze", Data: resp})
		}
	}
}

// trySend drops the message rather than blocking forever if the write
// pump has already exited and stopped draining send.
func trySend(send chan<- any, msg any) {
	select {
	case send <- msg:
	default:
	}
}

func (s *Server) wsPushPrices(ctx context.Context, ticker *time.Ticker, send chan<- any, exchange, symbol, interval string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := s.Gateway.Route(ctx, "market", "prices", map[string]any{
				"exchange": exchange, "symbol": symbol, "interval": interval,
			}, "")
			if err != nil {
				continue
			}
			select {
			case send <- wsOutbound{Type: "price", Data: resp}:
			case <-ctx.Done():
				return
			}
		}
	}
}
