package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/gmsync/internal/services"
	"github.com/urfave/cli/v3"
)

// AuthLogin authenticates with the music service and caches the credentials.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	token := cmd.String("token")
	deviceID := cmd.String("device-id")
	if deviceID == "" {
		deviceID = r.config.Credentials.DeviceID
	}

	r.logger.Info("authenticating with music service", "device_id", deviceID)

	if err := r.svc.Authenticate(ctx, map[string]string{
		"token":     token,
		"device_id": deviceID,
	}); err != nil {
		return err
	}

	if r.client != nil {
		if err := r.client.VerifyAuth(ctx); err != nil {
			return err
		}
	}

	path, err := services.CredentialPath(r.config.Credentials.Dir, cmd.String("cred"))
	if err != nil {
		return err
	}

	creds := &services.Credentials{
		Token:    token,
		DeviceID: deviceID,
		Email:    cmd.String("email"),
	}
	if err := services.SaveCredentials(path, creds); err != nil {
		return err
	}

	r.logger.Info("credentials cached", "path", path)
	r.writePlain("✓ Authenticated with %s\n", r.svc.Name())
	r.writePlain("Credentials cached at %s\n", path)
	return nil
}

// AuthStatus checks the cached credentials against the service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	path, err := services.CredentialPath(r.config.Credentials.Dir, cmd.String("cred"))
	if err != nil {
		return err
	}

	creds, err := services.LoadCredentials(path)
	if err != nil {
		return fmt.Errorf("%w (run 'gmsync auth login' first)", err)
	}

	if err := r.svc.Authenticate(ctx, map[string]string{
		"token":     creds.Token,
		"device_id": creds.DeviceID,
	}); err != nil {
		return err
	}
	if r.client != nil {
		if err := r.client.VerifyAuth(ctx); err != nil {
			return err
		}
	}

	r.writePlain("✓ Authenticated with %s\n", r.svc.Name())
	if creds.Email != "" {
		r.writePlain("Account: %s\n", creds.Email)
	}
	if creds.DeviceID != "" {
		r.writePlain("Device: %s\n", creds.DeviceID)
	}
	r.writePlain("Credential cache: %s\n", path)
	return nil
}
