// Package firebase adapts Firebase Authentication and Cloud Firestore to the
// app's session and task contracts.
package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"taskboard/config"
	"taskboard/utilities"
)

// InitializeApp builds the Admin SDK app. Without a credentials file the SDK
// falls back to application default credentials.
func InitializeApp(ctx context.Context, cfg config.Firebase) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}
	utilities.LogInfo("firebase initialized for project %s", cfg.ProjectID)
	return app, nil
}

// NewClient wires the Admin auth client and the Identity Toolkit password
// endpoints into a Client.
func NewClient(ctx context.Context, app *firebase.App, cfg config.Firebase) (*Client, error) {
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get auth client: %w", err)
	}
	passwords, err := NewPasswordAuth(ctx, cfg.APIKey, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return New(authClient, passwords, cfg.Timeout), nil
}

// GetFirestoreClient returns the Firestore client of app.
func GetFirestoreClient(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firestore client: %w", err)
	}
	return client, nil
}
