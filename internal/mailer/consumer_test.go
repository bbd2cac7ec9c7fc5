package mailer

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (s *fakeSender) DialAndSend(messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

func newTestConsumer(sender Sender) *Consumer {
	return NewConsumer(
		NewComposer("noreply@example.com", "../../templates"),
		sender,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func createUserBody(t *testing.T) []byte {
	t.Helper()

	body, err := json.Marshal(domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   "wangw@example.com",
		Data: domain.CreateUserMailData{FullName: "王伟", Username: "wangw", Password: "Abcdef123"},
	})
	require.NoError(t, err)
	return body
}

func TestConsumerHandle(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		sender := &fakeSender{}
		c := newTestConsumer(sender)

		assert.Equal(t, outcomeAck, c.handle(createUserBody(t)))
		assert.Len(t, sender.sent, 1)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		sender := &fakeSender{}
		c := newTestConsumer(sender)

		assert.Equal(t, outcomeDrop, c.handle([]byte("{")))
		assert.Empty(t, sender.sent)
	})

	t.Run("unsupported type is dropped", func(t *testing.T) {
		c := newTestConsumer(&fakeSender{})

		body, err := json.Marshal(domain.MailMessage{Type: "reset_password", To: "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, outcomeDrop, c.handle(body))
	})

	t.Run("send failure is requeued", func(t *testing.T) {
		c := newTestConsumer(&fakeSender{err: errors.New("smtp down")})

		assert.Equal(t, outcomeRequeue, c.handle(createUserBody(t)))
	})
}
