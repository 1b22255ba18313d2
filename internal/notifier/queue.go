package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// Queue sends notifications to the telegram service over the message queue,
// as a multipart message ["telegram", <json>] where the JSON body is
// ["ok", "send_message", {text, image_path, chat_id, subscriber_list}].
type Queue struct {
	mu   sync.Mutex
	sock zmq4.Socket
}

// NewQueue connects a dealer socket to the queue endpoint.
func NewQueue(ctx context.Context, endpoint string) (*Queue, error) {
	sock := zmq4.NewDealer(ctx)
	if err := sock.Dial(endpoint); err != nil {
		return nil, fmt.Errorf("dial notification endpoint %s: %w", endpoint, err)
	}
	return &Queue{sock: sock}, nil
}

// Notify sends one notification. Safe for concurrent use.
func (q *Queue) Notify(_ context.Context, n *Notification) error {
	var subscriberList *string
	if n.SubscriberList != "" {
		subscriberList = &n.SubscriberList
	}
	body, err := json.Marshal([]interface{}{
		"ok",
		"send_message",
		map[string]interface{}{
			"text":            n.Text,
			"image_path":      n.ImagePath,
			"chat_id":         n.ChatID,
			"subscriber_list": subscriberList,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.sock.Send(zmq4.NewMsgFrom([]byte("telegram"), body)); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Close releases the socket.
func (q *Queue) Close() error {
	return q.sock.Close()
}
