//go:build integration

package email

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/pagelite/internal/notifications"
	"github.com/bissquit/pagelite/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_DeliversToMailpit(t *testing.T) {
	ctx := context.Background()

	mailpit, err := testutil.NewMailpitContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mailpit.Terminate(context.Background()) })
	client := testutil.NewMailpitClient(mailpit)

	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    mailpit.SMTPHost,
		SMTPPort:    mailpit.SMTPPort,
		FromAddress: "Pagelite <noreply@pagelite.test>",
	})
	require.NoError(t, err)

	t.Run("plain message", func(t *testing.T) {
		require.NoError(t, client.DeleteAllMessages())

		err := sender.Send(ctx, notifications.Notification{
			To:             "ops@example.com",
			Subject:        "[Incident] Acme: API down",
			Body:           "We are investigating.",
			UnsubscribeURL: "https://status.example.com/pages/abc123/unsubscribe?token=t",
		})
		require.NoError(t, err)

		messages, err := client.WaitForMessages(1, 5*time.Second)
		require.NoError(t, err)
		require.Len(t, messages, 1)

		msg, err := client.GetMessageByID(messages[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "[Incident] Acme: API down", msg.Subject)
		require.Len(t, msg.To, 1)
		assert.Equal(t, "ops@example.com", msg.To[0].Address)
		assert.Contains(t, msg.Text, "We are investigating.")

		headers, err := client.GetHeaders(messages[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"<https://status.example.com/pages/abc123/unsubscribe?token=t>"}, headers["List-Unsubscribe"])
	})

	t.Run("unicode subject and body", func(t *testing.T) {
		require.NoError(t, client.DeleteAllMessages())

		err := sender.Send(ctx, notifications.Notification{
			To:      "ops@example.com",
			Subject: "[Incident] Café: Störung",
			Body:    "Überlastung der Datenbank",
		})
		require.NoError(t, err)

		messages, err := client.WaitForMessages(1, 5*time.Second)
		require.NoError(t, err)

		msg, err := client.GetMessageByID(messages[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "[Incident] Café: Störung", msg.Subject)
		assert.Contains(t, msg.Text, "Überlastung der Datenbank")
	})
}
