package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/ids"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/seal"
)

// Message types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// ErrBadSignature is returned by OpenMessage when a message fails
// verification.
var ErrBadSignature = errors.New("hermes: message signature does not verify")

// InboxChain returns vh/hermes/inbox/<devicePub>/.
func InboxChain(c *client.Client, devicePub string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(devicePub, "devicePub")
	if err != nil {
		return nil, err
	}
	return c.Mesh().Child("hermes").Child("inbox").Child(id), nil
}

func outboxChain(c *client.Client) *chain.Guarded {
	return c.User().Child("hermes").Child("outbox")
}

func chatChain(c *client.Client, channelID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(channelID, "channelId")
	if err != nil {
		return nil, err
	}
	return c.User().Child("hermes").Child("chats").Child(id), nil
}

// signedPayload is what a message signature covers.
func signedPayload(id, content string) []byte {
	return []byte(id + "|" + content)
}

// SendMessage encrypts body for the recipient and writes the message to
// the recipient's inbox, the sender's outbox and the sender's copy of the
// channel, in that order. The message id is derived from the channel,
// sender, timestamp and body.
func SendMessage(ctx context.Context, c *client.Client, to schema.DirectoryEntry, body, msgType string) (*schema.HermesMessage, error) {
	recipient, err := mesh.RequireID(to.DevicePub, "recipient")
	if err != nil {
		return nil, err
	}
	if _, err := mesh.RequireID(to.EPub, "epub"); err != nil {
		return nil, err
	}
	if msgType == "" {
		msgType = MessageText
	}

	pair := c.Pair()
	key, err := pair.SharedKey(to.EPub)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	sealer, err := seal.NewSealer(key)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	sealed, err := sealer.SealBytes([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	sender := pair.Pub()
	channelID := ids.ChannelID(sender, recipient)
	ts := c.Now().UnixMilli()
	msg := schema.HermesMessage{
		ID:                 ids.MessageID(channelID, sender, ts, body),
		SchemaVersion:      schema.HermesMessageVersion,
		ChannelID:          channelID,
		Sender:             sender,
		Recipient:          recipient,
		Timestamp:          ts,
		Content:            sealed.Ciphertext,
		Type:               msgType,
		SenderDevicePub:    pair.EPub(),
		DeviceID:           sender,
		RecipientDevicePub: to.EPub,
	}
	msg.Signature = pair.Sign(signedPayload(msg.ID, msg.Content))

	env := c.Env()
	var out schema.HermesMessage
	node, err := env.Sanitize(schema.KindHermesMessage, nil, msg, &out)
	if err != nil {
		return nil, err
	}
	node[seal.EncryptedFlag] = true

	inbox, err := InboxChain(c, recipient)
	if err != nil {
		return nil, err
	}
	chat, err := chatChain(c, channelID)
	if err != nil {
		return nil, err
	}
	for _, target := range []chain.Chain{inbox.Child(out.ID), outboxChain(c).Child(out.ID), chat.Child(out.ID)} {
		if err := put(ctx, c, target, node); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// ReadInbox returns the verified messages addressed to this device, oldest
// first.
func ReadInbox(ctx context.Context, c *client.Client) []schema.HermesMessage {
	node, err := InboxChain(c, c.Pair().Pub())
	if err != nil {
		return []schema.HermesMessage{}
	}
	return listMessages(ctx, c, node)
}

// ReadOutbox returns the messages this device sent, oldest first.
func ReadOutbox(ctx context.Context, c *client.Client) []schema.HermesMessage {
	return listMessages(ctx, c, outboxChain(c))
}

// ReadChat returns this device's copy of a channel, oldest first with ties
// broken by id.
func ReadChat(ctx context.Context, c *client.Client, channelID string) []schema.HermesMessage {
	node, err := chatChain(c, channelID)
	if err != nil {
		return []schema.HermesMessage{}
	}
	return listMessages(ctx, c, node)
}

func listMessages(ctx context.Context, c *client.Client, node chain.Chain) []schema.HermesMessage {
	msgs := mesh.List(ctx, c.Env(), node, schema.KindHermesMessage, nil,
		func(a, b schema.HermesMessage) bool {
			if a.Timestamp != b.Timestamp {
				return a.Timestamp < b.Timestamp
			}
			return a.ID < b.ID
		})
	out := msgs[:0]
	for _, m := range msgs {
		if VerifyMessage(m) {
			out = append(out, m)
		} else {
			c.Logger().Debug("dropping message with bad signature",
				"component", "adapter",
				"id", m.ID,
			)
		}
	}
	return out
}

// VerifyMessage checks the message signature against the sending device.
func VerifyMessage(m schema.HermesMessage) bool {
	return seal.Verify(m.DeviceID, signedPayload(m.ID, m.Content), m.Signature)
}

// OpenMessage verifies m and decrypts its body. Either party of the
// channel can open it.
func OpenMessage(c *client.Client, m schema.HermesMessage) (string, error) {
	if !VerifyMessage(m) {
		return "", ErrBadSignature
	}
	peer := m.SenderDevicePub
	if m.Sender == c.Pair().Pub() {
		peer = m.RecipientDevicePub
	}
	key, err := c.Pair().SharedKey(peer)
	if err != nil {
		return "", fmt.Errorf("open message: %w", err)
	}
	sealer, err := seal.NewSealer(key)
	if err != nil {
		return "", fmt.Errorf("open message: %w", err)
	}
	body, err := sealer.OpenBytes(seal.Envelope{Encrypted: true, Ciphertext: m.Content})
	if err != nil {
		return "", fmt.Errorf("open message: %w", err)
	}
	return string(body), nil
}
