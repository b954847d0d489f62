package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/results"
	"quiz-session-service/internal/session"

	"github.com/gorilla/websocket"
)

// WSHandler runs one quiz session per connection. The server, not the
// client, is the clock: timer expiries are pushed as question advances
// whether or not the student did anything.
type WSHandler struct {
	service   *app.SessionService
	presenter *results.Presenter
	upgrader  websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, presenter *results.Presenter) *WSHandler {
	return &WSHandler{
		service:   service,
		presenter: presenter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionPayload struct {
	Quiz             domain.Quiz `json:"quiz"`
	State            string      `json:"state"`
	Index            int         `json:"index"`
	TotalTimeSeconds int         `json:"total_time_seconds"`
}

type questionPayload struct {
	Index            int             `json:"index"`
	Total            int             `json:"total"`
	Question         domain.Question `json:"question"`
	Selected         string          `json:"selected,omitempty"`
	Committed        bool            `json:"committed"`
	RemainingSeconds int             `json:"remaining_seconds"`
	TimedOut         bool            `json:"timed_out,omitempty"`
}

type completedPayload struct {
	Answered int  `json:"answered"`
	TimedOut bool `json:"timed_out,omitempty"`
}

// ServeWS upgrades the request and drives the session protocol over it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctrl, err := h.service.Begin(r.Context(), token)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}})
		return
	}
	defer h.service.End(token)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Fan session events (including server-side timeouts) into the writer.
	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-ctrl.Events():
				if !ok {
					return
				}
				h.service.Persist(token)
				var msg outboundMessage[any]
				if ev.Kind == session.EventCompleted {
					msg = outboundMessage[any]{Type: "completed", Payload: completedPayload{Answered: ev.Index, TimedOut: ev.TimedOut}}
				} else {
					msg = outboundMessage[any]{Type: "question", Payload: h.questionView(ctrl, ev.TimedOut)}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{
		Quiz:             ctrl.Quiz(),
		State:            ctrl.State().String(),
		Index:            ctrl.Frontier(),
		TotalTimeSeconds: int(ctrl.Quiz().TotalTime() / time.Second),
	}}
	if ctrl.State() == session.Active {
		send <- outboundMessage[any]{Type: "question", Payload: h.questionView(ctrl, false)}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			if err := h.service.Start(token); err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: h.questionView(ctrl, false)}
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(errors.New("invalid select payload"))
				continue
			}
			if err := h.service.Select(token, payload.Option); err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: h.questionView(ctrl, false)}
		case "next":
			before := ctrl.Frontier()
			if err := h.service.Advance(token); err != nil {
				send <- errMsg(err)
				continue
			}
			// Commits at the frontier are announced via the event pump;
			// review navigation is not, so refresh the view here.
			if ctrl.State() == session.Active && ctrl.Frontier() == before {
				send <- outboundMessage[any]{Type: "question", Payload: h.questionView(ctrl, false)}
			}
		case "previous":
			if err := h.service.Previous(token); err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: h.questionView(ctrl, false)}
		case "submit":
			if err := h.service.Submit(r.Context(), token); err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "submitted", Payload: struct{}{}}
		case "result":
			result, err := h.presenter.Result(r.Context(), token)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: result}
		default:
			send <- errMsg(errors.New("unsupported message type"))
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) questionView(ctrl *session.Controller, timedOut bool) questionPayload {
	q, answer, committed := ctrl.View()
	return questionPayload{
		Index:            q.Order,
		Total:            ctrl.Quiz().TotalQuestions,
		Question:         q,
		Selected:         answer,
		Committed:        committed,
		RemainingSeconds: int(ctrl.Remaining().Round(time.Second) / time.Second),
		TimedOut:         timedOut,
	}
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: userMessage(err)}}
}

// userMessage keeps backend internals out of what students see.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenInvalid):
		return "quiz not found or expired"
	case errors.Is(err, domain.ErrResultNotReady):
		return "results are not available yet"
	case errors.Is(err, domain.ErrUpstream):
		return "quiz backend unavailable, please retry"
	default:
		return err.Error()
	}
}
