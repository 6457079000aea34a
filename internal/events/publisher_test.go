package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/relinkhq/relink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBroker *testutil.TestBroker

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testBroker, err = testutil.SetupTestBroker(ctx)
	if err != nil {
		panic("failed to setup test broker: " + err.Error())
	}

	code := m.Run()

	testBroker.Teardown(ctx)
	os.Exit(code)
}

func TestAMQPPublisher_PublishClick(t *testing.T) {
	ctx := context.Background()

	publisher, err := NewAMQPPublisher(testBroker.Conn, "relink.clicks.test")
	require.NoError(t, err)
	defer publisher.Close()

	// Bind a queue so the published event can be observed
	ch, err := testBroker.Conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "link.clicked", "relink.clicks.test", false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	event := ClickEvent{
		Code:       "abc123",
		Clicks:     7,
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, publisher.PublishClick(ctx, event))

	select {
	case msg := <-deliveries:
		assert.Equal(t, "application/json", msg.ContentType)

		var got ClickEvent
		require.NoError(t, json.Unmarshal(msg.Body, &got))
		assert.Equal(t, "abc123", got.Code)
		assert.Equal(t, int64(7), got.Clicks)
		assert.Equal(t, event.OccurredAt, got.OccurredAt)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for click event")
	}
}
