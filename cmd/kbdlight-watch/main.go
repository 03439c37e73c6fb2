package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// envelope mirrors the kbdlightd /ws/state frame.
type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type stateInit struct {
	Brightness   uint64    `json:"brightness"`
	Original     uint64    `json:"original"`
	LastActivity time.Time `json:"last_activity"`
}

type backlightChanged struct {
	Brightness uint64 `json:"brightness"`
	Original   uint64 `json:"original"`
	Reason     string `json:"reason"`
}

func main() {
	var (
		wsURL   = flag.String("ws", "ws://127.0.0.1:8091/ws/state", "kbdlightd state websocket URL")
		rawJSON = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The server pings every 20s; answer and extend the deadline.
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *rawJSON {
				fmt.Printf("%s\n", message)
				continue
			}
			printFrame(os.Stdout, message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printFrame renders one state frame as a single line.
func printFrame(w io.Writer, message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Fprintf(w, "[TEXT] %s\n", message)
		return
	}

	ts := ""
	if env.Ts != nil {
		ts = env.Ts.Local().Format("15:04:05.000") + " "
	}

	switch env.Type {
	case "state_init":
		var s stateInit
		if err := json.Unmarshal(env.Data, &s); err != nil {
			fmt.Fprintf(w, "%s[INIT] %s\n", ts, env.Data)
			return
		}
		fmt.Fprintf(w, "%s[INIT] brightness=%d original=%d\n", ts, s.Brightness, s.Original)

	case "backlight_changed":
		var c backlightChanged
		if err := json.Unmarshal(env.Data, &c); err != nil {
			fmt.Fprintf(w, "%s[CHANGE] %s\n", ts, env.Data)
			return
		}
		fmt.Fprintf(w, "%s[%s] brightness=%d original=%d\n", ts, strings.ToUpper(c.Reason), c.Brightness, c.Original)

	default:
		fmt.Fprintf(w, "%s[%s] %s\n", ts, env.Type, env.Data)
	}
}
