// bot is a scripted editor client used for smoke-testing a running server:
// it attaches to a study, paints one diagonal stroke on the middle axial
// slice, optionally undoes it, and saves.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/HYEJI0818/AIVIS-Q/internal/encoding"
	"github.com/HYEJI0818/AIVIS-Q/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		studyID = flag.String("study", "", "study id to edit")
		label   = flag.Int("label", 1, "label to paint")
		radius  = flag.Int("radius", 3, "brush radius")
		undo    = flag.Bool("undo", false, "undo the stroke before saving")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	if *studyID == "" {
		logger.Fatalf("missing -study")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "bot",
		StudyID:         *studyID,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s study=%s dims=%v labels=%d",
				w.SessionID, w.StudyID, w.Dims, len(w.Labels))
			script(conn, logger, &w, *label, *radius, *undo)

		case protocol.TypeMask:
			var m protocol.MaskMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			voxels, err := encoding.DecodeRLE(m.Data)
			painted := 0
			if err == nil {
				for _, v := range voxels {
					if v != 0 {
						painted++
					}
				}
			}
			logger.Printf("MASK revision=%d painted=%d", m.Revision, painted)

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err != nil {
				continue
			}
			logger.Printf("ACK for=%s accepted=%v code=%s revision=%d", a.AckFor, a.Accepted, a.Code, a.Revision)
			if a.AckFor == protocol.TypeSave {
				return
			}
		}
	}
}

// script sends the whole edit sequence up front; the read loop reports the
// server's replies as they come back.
func script(conn *websocket.Conn, logger *log.Logger, w *protocol.WelcomeMsg, label, radius int, undo bool) {
	send := func(v any) {
		if err := conn.WriteJSON(v); err != nil {
			logger.Fatalf("send: %v", err)
		}
	}

	send(protocol.SettingMsg{Type: protocol.TypeSetTool, ProtocolVersion: protocol.Version, Tool: "PAINT"})
	send(protocol.SettingMsg{Type: protocol.TypeSetLabel, ProtocolVersion: protocol.Version, Label: label})
	send(protocol.SettingMsg{Type: protocol.TypeSetRadius, ProtocolVersion: protocol.Version, Radius: radius})

	z := w.Dims[2] / 2
	n := w.Dims[0]
	if w.Dims[1] < n {
		n = w.Dims[1]
	}
	var seq uint64
	pointer := func(phase string, x, y int) {
		seq++
		send(protocol.PointerMsg{
			Type:            protocol.TypePointer,
			ProtocolVersion: protocol.Version,
			Phase:           phase,
			Voxel:           [3]int{x, y, z},
			Seq:             seq,
		})
	}

	pointer(protocol.PhaseBegin, 0, 0)
	for i := 1; i < n; i++ {
		pointer(protocol.PhaseMove, i, i)
	}
	pointer(protocol.PhaseEnd, n-1, n-1)

	if undo {
		send(protocol.CommandMsg{Type: protocol.TypeUndo, ProtocolVersion: protocol.Version})
	}
	send(protocol.CommandMsg{Type: protocol.TypeSave, ProtocolVersion: protocol.Version})
}
