package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"primerid/api/client/uploads"
	"primerid/api/cmd/portalctl/commands"
	platformFormat "primerid/api/models/constants/platform-format"

	"github.com/urfave/cli/v3"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to an env file",
		Value: ".env",
	}
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "url",
		Usage: "portal base url (default: PRIMERID_PUBLIC_URL)",
	}
}

func storeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "store",
		Usage: "saved primer file (default: user config dir)",
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "portalctl",
		Usage: "submit and inspect Primer ID portal jobs",
		Commands: []*cli.Command{
			{
				Name:  "primers",
				Usage: "primer conversion and saved primers",
				Commands: []*cli.Command{
					{
						Name:  "to-cli",
						Usage: "convert a TCS/DR job document to viral_seq tcs parameters",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "file", Usage: "job JSON, - for stdin", Value: "-"},
						},
						Action: commands.PrimersToCliAction,
					},
					{
						Name:  "from-cli",
						Usage: "convert viral_seq tcs parameters to the portal's primer format",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "file", Usage: "params JSON, - for stdin", Value: "-"},
						},
						Action: commands.PrimersFromCliAction,
					},
					{
						Name:  "design",
						Usage: "build tcs parameters with the primer designer, one command per line on stdin",
						Flags: []cli.Flag{
							storeFlag(),
							&cli.StringFlag{Name: "from", Usage: "start from a tcs parameters file"},
							&cli.BoolFlag{Name: "use-saved", Usage: "start with the saved primers"},
							&cli.FloatFlag{Name: "error-rate", Usage: "platform error rate", Value: 0.02},
							&cli.IntFlag{Name: "platform-format", Usage: "MiSeq read length", Value: platformFormat.Default},
							&cli.StringFlag{Name: "email", Usage: "where results are sent"},
						},
						Action: commands.PrimersDesignAction,
					},
					{
						Name:  "saved",
						Usage: "primers remembered from earlier submissions",
						Commands: []*cli.Command{
							{
								Name:   "list",
								Flags:  []cli.Flag{storeFlag()},
								Action: commands.SavedListAction,
							},
							{
								Name:   "enable",
								Flags:  []cli.Flag{storeFlag()},
								Action: commands.SavedEnableAction,
							},
							{
								Name:   "disable",
								Usage:  "turn saved primers off and forget them",
								Flags:  []cli.Flag{storeFlag()},
								Action: commands.SavedDisableAction,
							},
							{
								Name: "remove",
								Flags: []cli.Flag{
									storeFlag(),
									&cli.StringSliceFlag{Name: "region", Usage: "region to forget (repeatable)"},
									&cli.BoolFlag{Name: "yes", Usage: "confirm"},
								},
								Action: commands.SavedRemoveAction,
							},
						},
					},
				},
			},
			{
				Name:      "submit",
				Usage:     "stage files and submit a job",
				ArgsUsage: "<pipeline> [files...]",
				Flags: []cli.Flag{
					envFlag(),
					urlFlag(),
					storeFlag(),
					&cli.StringFlag{Name: "email", Usage: "where results are sent"},
					&cli.StringFlag{Name: "job-id", Usage: "label for the results archive"},
					&cli.StringFlag{Name: "results-format", Usage: "tar or zip", Value: "tar"},
					&cli.StringFlag{Name: "htsf", Usage: "HTSF location instead of uploads (tcsdr)"},
					&cli.StringFlag{Name: "pool-name", Usage: "pool name for the HTSF location"},
					&cli.StringFlag{Name: "params", Usage: "viral_seq tcs parameters JSON (tcsdr)"},
					&cli.StringFlag{Name: "dr-version", Usage: "DR parameter version (tcsdr)"},
					&cli.BoolFlag{Name: "validate-remote", Usage: "check file names with the validation service (tcsdr)"},
					&cli.StringSliceFlag{Name: "weeks", Usage: "SUBJECT=WEEKS since start of ART (ogv, repeatable)"},
					&cli.StringFlag{Name: "strain", Usage: "splicing strain"},
					&cli.StringFlag{Name: "assay", Usage: "splicing assay"},
					&cli.StringFlag{Name: "distance", Usage: "splicing distance"},
					&cli.StringFlag{Name: "sequence", Usage: "splicing reference sequence"},
					&cli.IntFlag{Name: "concurrency", Usage: "parallel uploads", Value: uploads.DefaultBatchSize},
				},
				Action: commands.SubmitAction,
			},
			{
				Name:  "jobs",
				Usage: "list jobs",
				Commands: []*cli.Command{
					{
						Name:      "list",
						Usage:     "jobs waiting for the worker",
						ArgsUsage: "<pipeline>",
						Flags:     []cli.Flag{envFlag(), urlFlag(), &cli.BoolFlag{Name: "json"}},
						Action:    commands.JobsListAction,
					},
					{
						Name:      "list-all",
						Usage:     "every job (admin password)",
						ArgsUsage: "<pipeline>",
						Flags: []cli.Flag{
							envFlag(),
							urlFlag(),
							&cli.StringFlag{Name: "password", Usage: "admin password (default: LOGIN_PASSWORD)"},
							&cli.BoolFlag{Name: "json"},
						},
						Action: commands.JobsListAllAction,
					},
				},
			},
			{
				Name:      "validate-files",
				Usage:     "check TCS/DR file names",
				ArgsUsage: "<names...>",
				Flags:     []cli.Flag{envFlag(), urlFlag()},
				Action:    commands.ValidateFilesAction,
			},
			{
				Name:  "dr-params",
				Usage: "show the DR parameter catalog",
				Flags: []cli.Flag{
					envFlag(),
					urlFlag(),
					&cli.BoolFlag{Name: "versions", Usage: "only list versions"},
				},
				Action: commands.DrParamsAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
