package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender publishes to Firebase Cloud Messaging topics.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender builds a messaging client. An empty credentialsFile falls back
// to Application Default Credentials.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, n Notification) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Topic: n.Topic,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
	})
	return err
}
