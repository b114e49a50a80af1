package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"primerid/api/client/primers"
	"primerid/api/models/jobs"
	"primerid/api/models/viralseq"

	"github.com/urfave/cli/v3"
)

// ToCli turns a TCS/DR job document into viral_seq tcs parameters.
func ToCli(r io.Reader, w io.Writer) error {
	var job jobs.Job
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		return fmt.Errorf("read job: %w", err)
	}
	return printJSON(w, viralseq.ToCLI(viralseq.FromJob(job)))
}

// FromCli is the inverse of ToCli.
func FromCli(r io.Reader, w io.Writer) error {
	var params viralseq.Params
	if err := json.NewDecoder(r).Decode(&params); err != nil {
		return fmt.Errorf("read tcs params: %w", err)
	}
	return printJSON(w, viralseq.FromCLI(params))
}

func PrimersToCliAction(ctx context.Context, cmd *cli.Command) error {
	in, err := openInput(cmd, cmd.String("file"))
	if err != nil {
		return err
	}
	defer in.Close()
	return ToCli(in, out(cmd))
}

func PrimersFromCliAction(ctx context.Context, cmd *cli.Command) error {
	in, err := openInput(cmd, cmd.String("file"))
	if err != nil {
		return err
	}
	defer in.Close()
	return FromCli(in, out(cmd))
}

func savedPrimers(cmd *cli.Command) (*primers.Saved, error) {
	path := cmd.String("store")
	if path == "" {
		var err error
		if path, err = primers.DefaultStorePath(); err != nil {
			return nil, err
		}
	}
	return primers.NewSaved(primers.NewFileStore(path)), nil
}

func SavedListAction(ctx context.Context, cmd *cli.Command) error {
	saved, err := savedPrimers(cmd)
	if err != nil {
		return err
	}
	on, err := saved.Enabled()
	if err != nil {
		return err
	}
	if !on {
		fmt.Fprintln(out(cmd), "Saved primers are off. Turn them on with `portalctl primers saved enable`.")
		return nil
	}
	list, err := saved.List()
	if err != nil {
		return err
	}
	if list == nil {
		list = []jobs.Primer{}
	}
	return printJSON(out(cmd), list)
}

func SavedEnableAction(ctx context.Context, cmd *cli.Command) error {
	saved, err := savedPrimers(cmd)
	if err != nil {
		return err
	}
	return saved.SetEnabled(true)
}

func SavedDisableAction(ctx context.Context, cmd *cli.Command) error {
	saved, err := savedPrimers(cmd)
	if err != nil {
		return err
	}
	return saved.SetEnabled(false)
}

func SavedRemoveAction(ctx context.Context, cmd *cli.Command) error {
	saved, err := savedPrimers(cmd)
	if err != nil {
		return err
	}
	regions := cmd.StringSlice("region")
	if len(regions) == 0 {
		return fmt.Errorf("--region is required")
	}
	if !cmd.Bool("yes") {
		fmt.Fprintf(out(cmd), "This removes %d saved primer region(s). Run again with --yes to confirm.\n", len(regions))
		return nil
	}

	// --yes is the second press
	saved.DeleteSelected(regions)
	_, err = saved.DeleteSelected(regions)
	return err
}
