package email

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bissquit/pagelite/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "enabled without smtp host",
			config: Config{
				Enabled:     true,
				FromAddress: "test@example.com",
			},
			wantErr: "SMTP host is required",
		},
		{
			name: "enabled without from address",
			config: Config{
				Enabled:  true,
				SMTPHost: "smtp.example.com",
			},
			wantErr: "from address is required",
		},
		{
			name: "disabled - no validation",
			config: Config{
				Enabled: false,
			},
			wantErr: "",
		},
		{
			name: "valid config",
			config: Config{
				Enabled:     true,
				SMTPHost:    "smtp.example.com",
				FromAddress: "test@example.com",
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, sender)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, sender)
			}
		})
	}
}

func TestNewSender_Defaults(t *testing.T) {
	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "test@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 587, sender.config.SMTPPort)
	assert.Equal(t, 10*time.Second, sender.config.DialTimeout)
}

func TestNewSender_AuthSetup(t *testing.T) {
	t.Run("with credentials", func(t *testing.T) {
		sender, err := NewSender(Config{
			Enabled:      true,
			SMTPHost:     "smtp.example.com",
			FromAddress:  "test@example.com",
			SMTPUser:     "user",
			SMTPPassword: "pass",
		})
		require.NoError(t, err)
		assert.NotNil(t, sender.auth)
	})

	t.Run("without credentials", func(t *testing.T) {
		sender, err := NewSender(Config{
			Enabled:     true,
			SMTPHost:    "smtp.example.com",
			FromAddress: "test@example.com",
		})
		require.NoError(t, err)
		assert.Nil(t, sender.auth)
	})
}

func TestSender_DisabledSkipsSend(t *testing.T) {
	sender, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	err = sender.Send(context.Background(), notifications.Notification{To: "ops@example.com", Subject: "s", Body: "b"})
	assert.NoError(t, err)
}

func TestSender_UnreachableServerIsRetryable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "127.0.0.1",
		SMTPPort:    addr.Port,
		FromAddress: "status@example.com",
		DialTimeout: time.Second,
	})
	require.NoError(t, err)

	err = sender.Send(context.Background(), notifications.Notification{To: "ops@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)

	var retryable *notifications.RetryableError
	require.True(t, errors.As(err, &retryable))
	assert.True(t, retryable.IsRetryable())
}

func TestSender_EmptyRecipient(t *testing.T) {
	sender, err := NewSender(Config{Enabled: true, SMTPHost: "smtp.example.com", FromAddress: "status@example.com"})
	require.NoError(t, err)

	err = sender.Send(context.Background(), notifications.Notification{Subject: "s", Body: "b"})

	var retryable *notifications.RetryableError
	require.True(t, errors.As(err, &retryable))
	assert.False(t, retryable.IsRetryable())
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    "user@example.com",
			expected: "user@example.com",
		},
		{
			input:    "Test User <user@example.com>",
			expected: "user@example.com",
		},
		{
			input:    "<user@example.com>",
			expected: "user@example.com",
		},
		{
			input:    "Pagelite <noreply@status.example.com>",
			expected: "noreply@status.example.com",
		},
		{
			input:    "invalid<",
			expected: "invalid<",
		},
		{
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := extractEmail(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSender_BuildMessage(t *testing.T) {
	sender := &Sender{
		config: Config{
			FromAddress: "Pagelite <noreply@example.com>",
		},
		now: func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}

	t.Run("with unsubscribe link", func(t *testing.T) {
		msg := string(sender.buildMessage(notifications.Notification{
			To:             "ops@example.com",
			Subject:        "[Incident] Acme: API down",
			Body:           "line one\nline two",
			UnsubscribeURL: "https://status.example.com/pages/abc123/unsubscribe?token=t",
		}))

		assert.Contains(t, msg, "From: Pagelite <noreply@example.com>\r\n")
		assert.Contains(t, msg, "To: ops@example.com\r\n")
		assert.Contains(t, msg, "Subject: [Incident] Acme: API down\r\n")
		assert.Contains(t, msg, "Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n")
		assert.Contains(t, msg, "List-Unsubscribe: <https://status.example.com/pages/abc123/unsubscribe?token=t>\r\n")
		assert.Contains(t, msg, "MIME-Version: 1.0\r\n")
		assert.Contains(t, msg, "Content-Type: text/plain; charset=\"utf-8\"\r\n")
		assert.Contains(t, msg, "\r\n\r\nline one\r\nline two")
	})

	t.Run("without unsubscribe link", func(t *testing.T) {
		msg := string(sender.buildMessage(notifications.Notification{To: "ops@example.com", Subject: "s", Body: "b"}))
		assert.NotContains(t, msg, "List-Unsubscribe")
	})

	t.Run("non-ascii subject is encoded", func(t *testing.T) {
		msg := string(sender.buildMessage(notifications.Notification{To: "ops@example.com", Subject: "Störung", Body: "b"}))
		assert.Contains(t, msg, "Subject: =?utf-8?q?St=C3=B6rung?=\r\n")
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{
			name:      "nil error",
			err:       nil,
			retryable: false,
		},
		{
			name:      "421 service unavailable",
			err:       errors.New("421 Service not available"),
			retryable: true,
		},
		{
			name:      "450 mailbox unavailable",
			err:       errors.New("450 Mailbox unavailable"),
			retryable: true,
		},
		{
			name:      "451 local error",
			err:       errors.New("451 Local error in processing"),
			retryable: true,
		},
		{
			name:      "452 insufficient storage",
			err:       errors.New("452 Insufficient storage"),
			retryable: true,
		},
		{
			name:      "552 mailbox full",
			err:       errors.New("552 Mailbox full"),
			retryable: true,
		},
		{
			name:      "550 mailbox not found",
			err:       errors.New("550 Mailbox not found"),
			retryable: false,
		},
		{
			name:      "535 auth failed",
			err:       errors.New("535 Authentication failed"),
			retryable: false,
		},
		{
			name:      "generic error",
			err:       errors.New("some random error"),
			retryable: false,
		},
		{
			name:      "timeout error",
			err:       &timeoutError{},
			retryable: true,
		},
		{
			name:      "network operation error",
			err:       &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRetryable(tt.err)
			assert.Equal(t, tt.retryable, result)
		})
	}
}

// timeoutError implements net.Error for testing
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
