package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
	"github.com/HYEJI0818/AIVIS-Q/internal/protocol"
	"github.com/HYEJI0818/AIVIS-Q/internal/studio"
)

// SaveFunc persists an exported mask file, e.g. to disk plus the study
// index. Called on SAVE from the editing client.
type SaveFunc func(studyID string, data []byte) error

type Server struct {
	mgr  *studio.Manager
	save SaveFunc
	log  *log.Logger

	sessionSeq atomic.Uint64
	upgrader   websocket.Upgrader
}

func NewServer(mgr *studio.Manager, save SaveFunc, logger *log.Logger) *Server {
	s := &Server{
		mgr:  mgr,
		save: save,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// repaint implements mask.Renderer: it flags the connection as needing a
// fresh MASK push, which the reader loop flushes after the current message.
type repaint struct {
	dirty atomic.Bool
}

func (p *repaint) Refresh() { p.dirty.Store(true) }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		st, sessionID, paint, out := s.handshake(conn)
		if st == nil {
			return
		}
		defer st.Detach()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.ProtocolVersion != protocol.Version {
				continue
			}
			s.dispatch(st, sessionID, base.Type, msg, out)
			if paint.dirty.Swap(false) {
				s.pushMask(st, out)
			}
		}
	}
}

func (s *Server) dispatch(st *studio.Study, sessionID, typ string, msg []byte, out chan []byte) {
	var err error
	switch typ {
	case protocol.TypePointer:
		var p protocol.PointerMsg
		if err = json.Unmarshal(msg, &p); err == nil {
			err = st.Pointer(sessionID, p.Phase, mask.Voxel{X: p.Voxel[0], Y: p.Voxel[1], Z: p.Voxel[2]})
		}
		// Pointer traffic is only acked on failure.
		if err != nil {
			s.ack(out, typ, err, st)
		}
		return

	case protocol.TypeSetLabel, protocol.TypeSetTool, protocol.TypeSetRadius,
		protocol.TypeSetOrientation, protocol.TypeSetView, protocol.TypeSetWindow:
		var set protocol.SettingMsg
		if err = json.Unmarshal(msg, &set); err == nil {
			err = s.applySetting(st, typ, set)
		}
		s.ack(out, typ, err, st)
		if err == nil {
			s.pushState(st, out)
		}
		return

	case protocol.TypeUndo:
		err = st.Undo(sessionID)
	case protocol.TypeReset:
		err = st.Reset(sessionID)
	case protocol.TypeSave:
		err = s.handleSave(st, sessionID)
	default:
		err = fmt.Errorf("%w: message type %q", mask.ErrInvalidArgument, typ)
	}
	s.ack(out, typ, err, st)
}

func (s *Server) applySetting(st *studio.Study, typ string, set protocol.SettingMsg) error {
	switch typ {
	case protocol.TypeSetLabel:
		return st.SetLabel(set.Label)
	case protocol.TypeSetTool:
		return st.SetTool(set.Tool)
	case protocol.TypeSetRadius:
		return st.SetRadius(set.Radius)
	case protocol.TypeSetOrientation:
		return st.SetOrientation(set.Orientation)
	case protocol.TypeSetView:
		return st.SetView(set.View)
	default: // SET_WINDOW
		return st.SetWindow(set.Brightness, set.Contrast)
	}
}

func (s *Server) handleSave(st *studio.Study, sessionID string) error {
	data, err := st.ExportMask(sessionID)
	if err != nil {
		return err
	}
	if s.save == nil {
		return nil
	}
	return s.save(st.ID, data)
}

func (s *Server) handshake(conn *websocket.Conn) (*studio.Study, string, *repaint, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, "", nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, "", nil, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, "", nil, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, "", nil, nil
	}

	st, err := s.mgr.Get(hello.StudyID)
	if err != nil {
		_ = writeJSON(conn, protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          protocol.TypeHello,
			Code:            protocol.ErrStudyNotFound,
			Message:         err.Error(),
		})
		return nil, "", nil, nil
	}

	paint := &repaint{}
	if err := st.Attach(paint); err != nil {
		_ = writeJSON(conn, protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          protocol.TypeHello,
			Code:            studio.CodeFor(err),
			Message:         err.Error(),
		})
		return nil, "", nil, nil
	}

	sessionID := fmt.Sprintf("S%d", s.sessionSeq.Add(1))

	// Welcome, then the initial mask so the client can paint frame one.
	if err := writeJSON(conn, st.Welcome(sessionID)); err != nil {
		st.Detach()
		return nil, "", nil, nil
	}
	maskMsg, err := st.MaskMsg()
	if err == nil {
		err = writeJSON(conn, maskMsg)
	}
	if err != nil {
		st.Detach()
		return nil, "", nil, nil
	}
	paint.dirty.Store(false)

	if s.log != nil {
		s.log.Printf("session %s attached to study %s (%s)", sessionID, st.ID, hello.ClientName)
	}

	out := make(chan []byte, 16)
	return st, sessionID, paint, out
}

func (s *Server) ack(out chan []byte, ackFor string, err error, st *studio.Study) {
	msg := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ackFor,
		Accepted:        err == nil,
		Revision:        st.Revision(),
	}
	if err != nil {
		msg.Code = studio.CodeFor(err)
		msg.Message = err.Error()
	}
	s.send(out, msg)
}

func (s *Server) pushState(st *studio.Study, out chan []byte) {
	s.send(out, st.State())
}

func (s *Server) pushMask(st *studio.Study, out chan []byte) {
	msg, err := st.MaskMsg()
	if err != nil {
		return
	}
	s.send(out, msg)
}

// send enqueues without blocking; a stalled client drops frames rather
// than wedging the reader loop.
func (s *Server) send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		if s.log != nil {
			s.log.Printf("outbound queue full, dropping %d bytes", len(b))
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
