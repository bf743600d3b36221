package senders

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"

	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/carlmjohnson/requests"
)

// webhookSender posts one notice per request as a Discord-compatible
// multipart form: a content field with the message text plus a fixed
// avatar_url.
type webhookSender struct {
	base
}

func (s *webhookSender) SendNotice(ctx context.Context, endpoint string, notice models.Notice) error {
	body, contentType, err := multipartMessage(messageContent(notice), s.cfg.AvatarURL)
	if err != nil {
		return fmt.Errorf("encoding webhook message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OutboundTimeout())
	defer cancel()

	err = requests.URL(endpoint).
		Transport(s.transport).
		BodyBytes(body).
		ContentType(contentType).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	return nil
}

func messageContent(notice models.Notice) string {
	return fmt.Sprintf("%s\n%s", notice.Title, notice.URL)
}

func multipartMessage(content, avatarURL string) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("content", content); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("avatar_url", avatarURL); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
