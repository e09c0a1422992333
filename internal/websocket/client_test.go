package websocket

import (
	"net"
	"testing"
	"time"

	"coverage-compare-be/internal/dto"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveDisplays(t *testing.T, h *Hub, initial []byte) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/:id", websocket.New(func(conn *websocket.Conn) {
		ServeWs(h, conn, conn.Params("id"), initial)
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/"
}

func TestServeWs_DeliversViewsAndLeavesOnClose(t *testing.T) {
	h := NewHub(nil, nil)
	initial := []byte(`{"type":"session_view","data":{"id":"s1"}}`)
	base := serveDisplays(t, h, initial)

	conn, _, err := fws.DefaultDialer.Dial(base+"s1", nil)
	require.NoError(t, err)

	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "s1", decodeView(t, first).Id)

	require.Eventually(t, func() bool { return h.ClientCount("s1") == 1 }, time.Second, 10*time.Millisecond)

	h.PushView("s1", dto.SessionViewResponse{Id: "s1", Notice: "삼성 암진단비"})
	_, pushed, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "삼성 암진단비", decodeView(t, pushed).Notice)

	require.NoError(t, conn.WriteMessage(fws.CloseMessage, fws.FormatCloseMessage(fws.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return h.ClientCount("s1") == 0 }, time.Second, 10*time.Millisecond)
}
