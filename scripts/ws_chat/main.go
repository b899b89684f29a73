// Command ws_chat is a terminal client for the admin /ws endpoint. It pipes
// stdin lines to the server and prints every line it receives.
//
// The admin server is off by default, so start the server with it enabled:
//
//	linechat-server --admin-addr :8081
//	go run ./scripts/ws_chat -addr ws://localhost:8081/ws
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
)

// defaultAddr matches the admin address used in the example above.
const defaultAddr = "ws://localhost:8081/ws"

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", defaultAddr, "WebSocket address (server must run with --admin-addr)")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	stream := websocket.NetConn(ctx, conn, websocket.MessageText)

	go func() {
		defer cancel()
		if _, err := io.Copy(stream, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("send: %v", err)
		}
	}()

	_, err = io.Copy(os.Stdout, stream)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) ||
		websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return fmt.Errorf("receive: %w", err)
}
