package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/models"
)

// Platforms lists supported platforms and their credential fields, from a running server when --server is set.
func (r *Runner) Platforms(ctx context.Context, cmd *cli.Command) error {
	descriptors := r.catalog.Descriptors()
	if server := cmd.String("server"); server != "" {
		api := r.api(server)
		if err := api.Health(ctx); err != nil {
			return fmt.Errorf("server %s is not healthy: %w", server, err)
		}
		remote, err := api.Platforms(ctx)
		if err != nil {
			return err
		}
		descriptors = remote
	}

	if cmd.Bool("json") {
		return r.writeJSON(descriptors, true)
	}

	r.writePlainHeader("Platforms")
	for _, d := range descriptors {
		r.writePlain("%-15s %s\n", d.ID, d.Name)
		if d.Description != "" {
			r.writePlain("%-15s %s\n", "", d.Description)
		}
		if d.RequiresAuth {
			r.writePlain("%-15s credentials: %s\n", "", strings.Join(d.AuthFields, ", "))
		}
	}
	return nil
}

// Playlists authenticates with one platform and lists the account's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	platform := cmd.String("platform")
	creds, err := parseCredentials(cmd.StringSlice("cred"))
	if err != nil {
		return err
	}

	var (
		playlists []models.Playlist
		name      = platform
	)
	r.logger.Info("listing playlists", "platform", platform)
	if server := cmd.String("server"); server != "" {
		playlists, err = r.api(server).Playlists(ctx, platform, creds)
		if err != nil {
			return err
		}
	} else {
		provider, err := r.catalog.Provider(platform)
		if err != nil {
			return err
		}
		name = provider.Descriptor().Name

		svc, err := provider.Authenticate(ctx, creds)
		if err != nil {
			return err
		}
		if playlists, err = svc.ListPlaylists(ctx); err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found on %s\n", name)
	}

	r.writePlainHeader(fmt.Sprintf("%s playlists (%d)", name, len(playlists)))
	for _, p := range playlists {
		r.writePlain("%s  %s (%d tracks)", p.ID, p.Name, p.TrackCount)
		if p.Owner != "" {
			r.writePlain(" by %s", p.Owner)
		}
		r.writePlain(" [%s]\n", visibility(p.Public))
	}
	return nil
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}
