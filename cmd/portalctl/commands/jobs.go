package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"primerid/api/models/jobs"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

func renderSummaries(w io.Writer, list []jobs.PublicJobSummary) {
	table := tablewriter.NewWriter(w)
	table.Header("Id", "Submit", "Pending", "Uploads", "Created At")
	for _, j := range list {
		table.Append(
			j.Id,
			fmt.Sprintf("%t", j.Submit),
			fmt.Sprintf("%t", j.Pending),
			fmt.Sprintf("%d", j.UploadCount),
			j.CreatedAt.Format(time.RFC3339),
		)
	}
	table.Render()
}

func renderJobs(w io.Writer, list []jobs.Job) {
	table := tablewriter.NewWriter(w)
	table.Header("Id", "Email", "Job Id", "Submit", "Pending", "Error", "Uploads", "Created At")
	for _, j := range list {
		table.Append(
			j.Id,
			j.Email,
			j.JobID,
			fmt.Sprintf("%t", j.Submit),
			fmt.Sprintf("%t", j.Pending),
			fmt.Sprintf("%t", j.ProcessingError),
			fmt.Sprintf("%d", j.UploadCount()),
			j.CreatedAt.Format(time.RFC3339),
		)
	}
	table.Render()
}

// JobsListAction prints what the worker would pick up.
func JobsListAction(ctx context.Context, cmd *cli.Command) error {
	p, err := pipelineArg(cmd)
	if err != nil {
		return err
	}
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	list, err := client.List(ctx, p)
	if err != nil {
		return fail(err)
	}
	if len(list) == 0 {
		fmt.Fprintf(out(cmd), "No %s jobs waiting.\n", p)
		return nil
	}
	if cmd.Bool("json") {
		return printJSON(out(cmd), list)
	}
	renderSummaries(out(cmd), list)
	return nil
}

// JobsListAllAction dumps every job behind the admin password.
func JobsListAllAction(ctx context.Context, cmd *cli.Command) error {
	p, err := pipelineArg(cmd)
	if err != nil {
		return err
	}
	client, cfg, err := newClient(cmd)
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		password = cfg.Api.LoginPassword
	}

	list, err := client.ListAll(ctx, p, password)
	if err != nil {
		return fail(err)
	}
	if cmd.Bool("json") {
		return printJSON(out(cmd), list)
	}
	renderJobs(out(cmd), list)
	return nil
}

func ValidateFilesAction(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("no file names given")
	}
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	res, err := client.ValidateFiles(ctx, names)
	if err != nil {
		return fail(err)
	}
	if res.Error != "" {
		return fmt.Errorf("%s", res.Error)
	}

	w := out(cmd)
	for _, f := range res.Files {
		status := "ok"
		if len(f.Errors) > 0 {
			status = strings.Join(f.Errors, "; ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.FileName, f.LibName, status)
	}
	if !res.AllPass {
		return fmt.Errorf("some file names did not pass")
	}
	return nil
}

func DrParamsAction(ctx context.Context, cmd *cli.Command) error {
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	catalog, err := client.DrParams(ctx)
	if err != nil {
		return fail(err)
	}

	if cmd.Bool("versions") {
		children, err := catalog.ChildrenMap()
		if err != nil {
			return err
		}
		versions := make([]string, 0, len(children))
		for v := range children {
			versions = append(versions, v)
		}
		sort.Strings(versions)
		fmt.Fprintln(out(cmd), joinLines(versions))
		return nil
	}
	fmt.Fprintln(out(cmd), catalog.StringIndent("", "  "))
	return nil
}
