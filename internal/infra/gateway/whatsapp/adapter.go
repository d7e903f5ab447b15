package whatsapp

import (
	"context"
	"io"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	platformwa "github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
)

// BroadcastSender adapts the client to broadcast.Sender and to the account
// service's gateway port
type BroadcastSender struct {
	client *Client
}

// Compile-time checks
var (
	_ broadcast.Sender   = (*BroadcastSender)(nil)
	_ platformwa.Gateway = (*BroadcastSender)(nil)
)

// NewBroadcastSender creates a broadcast sender backed by the client
func NewBroadcastSender(client *Client) *BroadcastSender {
	return &BroadcastSender{client: client}
}

// Send delivers one broadcast message
func (s *BroadcastSender) Send(ctx context.Context, acct broadcast.Account, to string, msg broadcast.Message) error {
	_, err := s.client.Send(ctx, credentials(acct), OutgoingMessage{
		Kind:     msg.Kind,
		To:       to,
		Body:     msg.Body,
		MediaURL: msg.MediaURL,
		Caption:  msg.Caption,
		Filename: msg.Filename,
	})
	return err
}

// ProfilePicture returns the avatar URL of a phone number
func (s *BroadcastSender) ProfilePicture(ctx context.Context, acct broadcast.Account, phone string) (string, error) {
	return s.client.ProfilePicture(ctx, credentials(acct), phone+"@c.us")
}

// UploadMedia hosts a file through the account's instance
func (s *BroadcastSender) UploadMedia(ctx context.Context, acct broadcast.Account, filename string, file io.Reader) (string, error) {
	return s.client.UploadMedia(ctx, credentials(acct), filename, file)
}

func credentials(acct broadcast.Account) Credentials {
	return Credentials{InstanceID: acct.InstanceID, Token: acct.Token}
}
