package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sprite-ai/easygit/internal/app"
	"github.com/sprite-ai/easygit/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts non-browser clients and pages served from loopback.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.EqualFold(u.Host, r.Host)
}

// WebSocket message types from client.
const (
	wsMsgSelectRepo   = "select_repo"
	wsMsgSelectCommit = "select_commit"
	wsMsgSelectFile   = "select_file"
	wsMsgRevert       = "revert"
	wsMsgOpen         = "open"
	wsMsgRefresh      = "refresh"
	wsMsgLogout       = "logout"
)

// WebSocket message types to client.
const (
	wsMsgHello = "hello"
	wsMsgState = "state"
	wsMsgError = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsSelectRepo struct {
	ID int64 `json:"id"`
}

type wsCommitRef struct {
	SHA string `json:"sha"`
}

type wsSelectFile struct {
	Filename string `json:"filename"`
}

type wsHello struct {
	ConnectionID string `json:"connection_id"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	s.logger.Printf("websocket %s connected", id)
	defer s.logger.Printf("websocket %s disconnected", id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := s.bridge.Subscribe(id)
	defer unsubscribe()

	// gorilla connections allow one writer; everything outbound goes
	// through out.
	out := make(chan wsMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, conn, updates, out)
	}()
	defer func() {
		cancel()
		<-writerDone
	}()

	send(ctx, out, wsMsgHello, wsHello{ConnectionID: id})
	if snap, err := s.bridge.Snapshot(ctx); err == nil {
		send(ctx, out, wsMsgState, snap)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("websocket %s read: %v", id, err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sendError(ctx, out, "invalid message format")
			continue
		}
		if err := s.dispatch(ctx, msg); err != nil {
			sendError(ctx, out, err.Error())
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan Snapshot, out <-chan wsMessage) {
	for {
		var msg wsMessage
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			raw, err := json.Marshal(snap)
			if err != nil {
				s.logger.Printf("ws marshal: %v", err)
				continue
			}
			msg = wsMessage{Type: wsMsgState, Data: raw}
		case msg = <-out:
		}
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Printf("ws write: %v", err)
			return
		}
	}
}

// dispatch turns a client message into a controller transition.
func (s *Server) dispatch(ctx context.Context, msg wsMessage) error {
	var op Op
	switch msg.Type {
	case wsMsgSelectRepo:
		var req wsSelectRepo
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("invalid %s data", msg.Type)
		}
		op = func(c *app.Controller) tea.Cmd { return c.SelectRepoByID(req.ID) }

	case wsMsgSelectCommit:
		var req wsCommitRef
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("invalid %s data", msg.Type)
		}
		op = func(c *app.Controller) tea.Cmd { return c.SelectCommitBySHA(req.SHA) }

	case wsMsgSelectFile:
		var req wsSelectFile
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("invalid %s data", msg.Type)
		}
		op = func(c *app.Controller) tea.Cmd {
			c.SelectFile(req.Filename)
			return nil
		}

	case wsMsgRevert, wsMsgOpen:
		var req wsCommitRef
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("invalid %s data", msg.Type)
		}
		return s.commitAction(ctx, msg.Type, req.SHA)

	case wsMsgRefresh:
		op = (*app.Controller).Refresh

	case wsMsgLogout:
		op = func(c *app.Controller) tea.Cmd {
			c.Logout()
			return nil
		}

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}

	_, err := s.bridge.Do(ctx, op)
	return err
}

// commitAction runs a context menu action on one of the loaded commits.
func (s *Server) commitAction(ctx context.Context, action, sha string) error {
	found := false
	_, err := s.bridge.Do(ctx, func(c *app.Controller) tea.Cmd {
		var target model.CommitSummary
		for _, cm := range c.State().Commits {
			if cm.SHA == sha {
				target, found = cm, true
				break
			}
		}
		if !found {
			return nil
		}
		c.OpenMenu(target, 0, 0)
		if action == wsMsgRevert {
			return c.Revert()
		}
		return c.OpenExternally()
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("commit %s is not loaded", model.ShortSHA(sha))
	}
	return nil
}

func send(ctx context.Context, out chan<- wsMessage, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	select {
	case out <- wsMessage{Type: msgType, Data: raw}:
	case <-ctx.Done():
	}
}

func sendError(ctx context.Context, out chan<- wsMessage, errMsg string) {
	send(ctx, out, wsMsgError, map[string]string{"message": errMsg})
}
