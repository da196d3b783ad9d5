// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Use a running crossfade server at this URL instead of local state",
	}
}

// setupCommand initializes config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   r.configPath,
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the most recent database migration",
			},
		},
		Action: r.Setup,
	}
}

// platformsCommand lists supported platforms.
func platformsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "platforms",
		Usage:  "List supported platforms and the credentials each expects",
		Flags:  []cli.Flag{jsonFlag(), serverFlag()},
		Action: r.Platforms,
	}
}

// playlistsCommand lists the playlists of one account.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists on a platform",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "platform",
				Aliases:  []string{"p"},
				Usage:    "Platform id (see 'crossfade platforms')",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "cred",
				Usage: "Credential as key=value, repeatable",
			},
			jsonFlag(),
			serverFlag(),
		},
		Action: r.Playlists,
	}
}

// transferCommand runs one transfer, locally or on a server.
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Copy a playlist from one platform to another",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Usage:    "Source platform id",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "dest",
				Usage:    "Destination platform id",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "playlist",
				Usage:    "Source playlist id",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "source-cred",
				Usage: "Source credential as key=value, repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "dest-cred",
				Usage: "Destination credential as key=value, repeatable",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Destination playlist name (defaults to the source name)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Watch progress in the interactive terminal UI",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Report format: text, markdown, csv, json",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "Run the transfer on a crossfade server at this URL instead of in-process",
			},
		},
		Action: r.Transfer,
	}
}

// statusCommand shows one job.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the status of a transfer job",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "job",
				Aliases:  []string{"j"},
				Usage:    "Job id",
				Required: true,
			},
			serverFlag(),
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Follow a running job on the server in the terminal UI",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Print the full report in this format: text, markdown, csv, json",
			},
			jsonFlag(),
		},
		Action: r.Status,
	}
}

// jobsCommand lists jobs from the archive or a server.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "List transfer jobs",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only jobs with this status (archive only)",
			},
			&cli.StringFlag{
				Name:  "platform",
				Usage: "Only jobs from or to this platform (archive only)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of jobs to list (archive only)",
				Value: 20,
			},
			jsonFlag(),
		},
		Action: r.Jobs,
		Commands: []*cli.Command{
			{
				Name:  "cancel",
				Usage: "Cancel a job on a running server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Aliases:  []string{"j"},
						Usage:    "Job id",
						Required: true,
					},
					serverFlag(),
				},
				Action: r.JobsCancel,
			},
			{
				Name:  "delete",
				Usage: "Remove a job from the local archive",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Aliases:  []string{"j"},
						Usage:    "Job id",
						Required: true,
					},
				},
				Action: r.JobsDelete,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the transfer HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind",
				Value: r.config.Server.Host,
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
				Value: r.config.Server.Port,
			},
		},
		Action: r.Serve,
	}
}

// authCommand obtains user tokens.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Obtain platform credentials",
		Commands: []*cli.Command{
			{
				Name:  "spotify",
				Usage: "Log in to Spotify in the browser and print an access token",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the login URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the login redirect",
						Value: defaultAuthTimeout,
					},
				},
				Action: r.AuthSpotify,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Build a YouTube Music browser auth file from a copied cURL request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write browser.json (default: ~/.crossfade/browser.json)",
					},
				},
				Action: r.AuthYouTube,
			},
		},
	}
}

// cacheCommand inspects the local track cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect tracks cached during transfers",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Count cached tracks per platform",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CacheStats,
			},
			{
				Name:  "lookup",
				Usage: "Find cached tracks by ISRC or platform",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "International Standard Recording Code",
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Only tracks from this platform",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks",
						Value: 50,
					},
					jsonFlag(),
				},
				Action: r.CacheLookup,
			},
		},
	}
}
