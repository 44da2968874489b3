package nfc

import (
	"context"
)

// Convenience helpers layering one-call reads and writes over a once-scan
// session. Callers needing listener control or multi-tag sessions should use
// the session operations directly.

// ReadTag arms a once session and blocks until the first tag is detected or
// the context ends. The session is always stopped before returning.
func (c *Client) ReadTag(ctx context.Context) (*TagEvent, error) {
	const op = "ReadTag"

	tags := make(chan TagEvent, 1)
	handle := c.AddListener(EventTagDetected, func(ev Event) {
		tag, ok := ev.(TagEvent)
		if !ok {
			return
		}
		select {
		case tags <- tag:
		default:
		}
	})
	defer handle.Remove()

	if err := c.StartScanSession(ctx, ScanOptions{Once: true}); err != nil {
		return nil, err
	}
	defer c.StopScanSession(context.WithoutCancel(ctx))

	select {
	case tag := <-tags:
		return &tag, nil
	case <-ctx.Done():
		return nil, wrapError(KindCancelled, op, "scan cancelled", ctx.Err())
	}
}

// ReadText reads the first text record off the next detected tag.
func (c *Client) ReadText(ctx context.Context) (string, error) {
	tag, err := c.ReadTag(ctx)
	if err != nil {
		return "", err
	}
	text, ok := tag.FirstText()
	if !ok {
		return "", newError(KindTagError, "ReadText", "tag carries no text record")
	}
	return text, nil
}

// WriteText replaces the tag content with a single text record. Language
// defaults to "en" when empty.
func (c *Client) WriteText(ctx context.Context, text, language string) error {
	return c.Write(ctx, WriteOptions{Message: NewTextMessage(text, language)})
}

// WriteURI replaces the tag content with a single URI record.
func (c *Client) WriteURI(ctx context.Context, uri string) error {
	return c.Write(ctx, WriteOptions{Message: NewURIMessage(uri)})
}
