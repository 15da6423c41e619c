package tailor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// helperWorkerEnv switches the test binary into fake worker mode.
// Values: "serve" runs a JSON-RPC WebSocket server, "crash" exits immediately.
const helperWorkerEnv = "TAILOR_TEST_HELPER_WORKER"

// helperWorkerLifetime stops orphaned helpers if a test forgets to terminate them.
const helperWorkerLifetime = time.Minute

// runHelperWorker emulates the sidecar worker contract:
// <interpreter> [module args] --vault <path> --ws-port <port>.
func runHelperWorker(mode string, args []string) int {
	var (
		vault string
		port  int
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Println("Python 3.12.0 (tailor test helper)")

			return 0
		case "--vault":
			if i+1 < len(args) {
				vault = args[i+1]
				i++
			}
		case "--ws-port":
			if i+1 < len(args) {
				port, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	if mode == "crash" {
		fmt.Fprintln(os.Stderr, "fatal: vault is locked")

		return 3
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)

		return 1
	}

	fmt.Println("worker ready vault=" + vault)
	fmt.Fprintln(os.Stderr, "warming up")

	time.AfterFunc(helperWorkerLifetime, func() { os.Exit(0) })

	upgrader := websocket.Upgrader{}

	_ = http.Serve(ln, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		serveHelperConn(conn, vault)
	}))

	return 0
}

// serveHelperConn answers requests on one connection.
func serveHelperConn(conn *websocket.Conn, vault string) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		var req struct {
			Method string `json:"method"`
			Params any    `json:"params"`
			ID     string `json:"id"`
		}

		if err := json.Unmarshal(data, &req); err != nil {
			return
		}

		reply := func(result any) {
			_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
		}

		switch req.Method {
		case "ping":
			reply("pong")
		case "echo":
			reply(req.Params)
		case "vault":
			reply(vault)
		case "cwd":
			wd, _ := os.Getwd()
			reply(wd)
		case "unrelated-first":
			_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": "not-yours", "result": "wrong"})
			reply("right")
		case "close":
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))

			return
		case "hang":
			// never answer
		default:
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]any{"code": -32601, "message": "Method not found"},
			})
		}
	}
}
