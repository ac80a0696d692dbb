package feedsim

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tickbench/pkg/tick"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

// go test -v --run TestServerStreamsBinary
func TestServerStreamsBinary(t *testing.T) {
	srv := httptest.NewServer(New(Config{Format: FormatBinary, Count: 7}, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for i := 0; i < 7; i++ {
		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)

		got, ok := tick.DecodeBinary(data)
		require.True(t, ok)
		assert.Equal(t, tick.Symbols[i%len(tick.Symbols)], got.Symbol)
	}

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

// go test -v --run TestServerRecordsStatus
func TestServerRecordsStatus(t *testing.T) {
	sim := New(Config{Format: FormatJSON, Count: 1}, nil)
	srv := httptest.NewServer(sim)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"identify","clientId":"c1"}`)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	_, ok := tick.DecodeText(data)
	assert.True(t, ok)

	require.Eventually(t, func() bool { return len(sim.Received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sim.Sessions())
}

// go test -v --run TestParseFormat
func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("binary")
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
