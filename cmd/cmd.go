// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// syncFlags are the flags shared by the down and up commands.
func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "cred",
			Usage: "Credential cache name",
			Value: "oauth",
		},
		&cli.BoolFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Usage:   "Write debug logs to ./tmp/gmsync.log",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress normal output",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Show what would be transferred without transferring",
		},
		&cli.StringSliceFlag{
			Name:    "include-filter",
			Aliases: []string{"f"},
			Usage:   "Include songs by field:pattern (e.g. 'artist:Muse')",
		},
		&cli.StringSliceFlag{
			Name:    "exclude-filter",
			Aliases: []string{"F"},
			Usage:   "Exclude songs by field:pattern",
		},
		&cli.BoolFlag{
			Name:    "all-includes",
			Aliases: []string{"a"},
			Usage:   "Songs must match all include filters, not just one",
		},
		&cli.BoolFlag{
			Name:    "all-excludes",
			Aliases: []string{"A"},
			Usage:   "Songs must match all exclude filters, not just one",
		},
		&cli.StringSliceFlag{
			Name:    "exclude-pattern",
			Aliases: []string{"e"},
			Usage:   "Exclude local paths matching regex pattern",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of concurrent transfers (default from config)",
		},
		&cli.BoolFlag{
			Name:  "ui",
			Usage: "Show an interactive progress view",
		},
	}
}

// downCommand syncs the remote library down to local files.
func downCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "down",
		Usage: "Download missing library songs",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "template",
				UsageText: "Download path template, e.g. '%artist%/%album%/%title%' (default: suggested layout in cwd)",
			},
		},
		Flags: append(syncFlags(),
			&cli.StringFlag{
				Name:    "playlists",
				Aliases: []string{"p"},
				Usage:   "Directory to write M3U playlist files into",
			},
			&cli.StringFlag{
				Name:  "favorites",
				Usage: "Name for the generated favorites playlist",
			},
			&cli.StringFlag{
				Name:    "removed",
				Aliases: []string{"r"},
				Usage:   "Move local songs gone from the library into this directory",
			},
			&cli.BoolFlag{
				Name:  "modify-tags",
				Usage: "Rewrite ID3 tags on downloaded songs from library metadata",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a CSV report of transferred songs to this path",
			},
		),
		Action: r.Down,
	}
}

// upCommand syncs local songs up to the remote library.
func upCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "up",
		Usage:     "Upload local songs missing from the library",
		ArgsUsage: "[paths...]",
		Flags: append(syncFlags(),
			&cli.BoolFlag{
				Name:    "no-recursion",
				Aliases: []string{"R"},
				Usage:   "Only scan the given directories, not their subdirectories",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Limit directory scan depth (-1 for unlimited)",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:    "match",
				Aliases: []string{"m"},
				Usage:   "Let the service match songs by fingerprint instead of uploading audio",
			},
			&cli.BoolFlag{
				Name:  "delete-on-success",
				Usage: "Delete local songs that uploaded (or already exist remotely)",
			},
		),
		Action: r.Up,
	}
}

// setupCommand initializes the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with the music service and cache credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Usage:    "Service auth token",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "device-id",
						Usage: "Uploader/device id (default from config)",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Account email, stored for display only",
					},
					&cli.StringFlag{
						Name:  "cred",
						Usage: "Credential cache name",
						Value: "oauth",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Check current authentication state",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cred",
						Usage: "Credential cache name",
						Value: "oauth",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// cacheCommand inspects and maintains the local track cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local track cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Only tracks by this artist",
					},
					&cli.StringFlag{
						Name:  "album",
						Usage: "Only tracks on this album",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "clear",
				Usage:  "Clear all cached tracks",
				Action: r.CacheClear,
			},
			{
				Name:  "runs",
				Usage: "Show recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
				},
				Action: r.CacheRuns,
			},
		},
	}
}
