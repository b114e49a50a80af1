package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"primerid/api/client/forms"
	"primerid/api/client/staging"
	"primerid/api/client/submission"
	"primerid/api/client/uploads"
	"primerid/api/client/wizard"
	"primerid/api/models/constants"
	"primerid/api/models/constants/pipeline"
	"primerid/api/models/jobs"
	"primerid/api/models/viralseq"

	"github.com/urfave/cli/v3"
)

// Submission steps, in the order the form reveals them.
const (
	stepFiles = iota
	stepParameters
	stepContact
	stepSubmit
)

var stepNames = []string{"files", "parameters", "contact", "submit"}

// ParseWeeks reads SUBJECT=WEEKS pairs into the conversion form.
func ParseWeeks(pairs []string) (*forms.Conversion, error) {
	conv := forms.NewConversion()
	for _, pair := range pairs {
		subject, weeks, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(subject) == "" {
			return nil, fmt.Errorf("--weeks expects SUBJECT=WEEKS, got %q", pair)
		}
		conv.Set(strings.TrimSpace(subject), weeks)
	}
	return conv, nil
}

func readParams(path string) (viralseq.Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return viralseq.Pipeline{}, err
	}
	defer f.Close()

	var params viralseq.Params
	if err := json.NewDecoder(f).Decode(&params); err != nil {
		return viralseq.Pipeline{}, fmt.Errorf("read %s: %w", path, err)
	}
	return viralseq.FromCLI(params), nil
}

func printFileErrors(w io.Writer, errs map[string][]string) {
	names := make([]string, 0, len(errs))
	for n := range errs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %s:\n    %s\n", n, strings.Join(errs[n], "\n    "))
	}
}

// buildJob assembles the pipeline specific part of the payload.
func buildJob(cmd *cli.Command, p constants.Pipeline, stage *staging.Stage) (jobs.Job, error) {
	var job jobs.Job

	switch p {
	case pipeline.TCSDR:
		if version := cmd.String("dr-version"); version != "" {
			job.IsDR = true
			job.DrVersion = version
			break
		}
		path := cmd.String("params")
		if path == "" {
			return job, fmt.Errorf("--params or --dr-version is required for tcsdr")
		}
		params, err := readParams(path)
		if err != nil {
			return job, err
		}
		job.Primers = params.Primers
		job.ErrorRate = params.ErrorRate
		job.PlatformFormat = params.PlatformFormat
		job.Email = params.Email
	case pipeline.OGV:
		conv, err := ParseWeeks(cmd.StringSlice("weeks"))
		if err != nil {
			return job, err
		}
		subjects := stage.Groups()
		if err := conv.TryAdvance(subjects); err != nil {
			return job, err
		}
		job.Conversion = conv.Values(subjects)
	case pipeline.Splicing:
		cfg := forms.NewSpliceConfig()
		if v := cmd.String("strain"); v != "" {
			cfg.Strain = v
		}
		if v := cmd.String("distance"); v != "" {
			cfg.Distance = v
		}
		cfg.Assay = cmd.String("assay")
		cfg.Sequence = cmd.String("sequence")
		cfg.Apply(&job)
	case pipeline.Intactness, pipeline.Coreceptor:
		job.Sequences = stage.SequenceText()
	}
	return job, nil
}

func SubmitAction(ctx context.Context, cmd *cli.Command) error {
	w := out(cmd)

	p, err := pipelineArg(cmd)
	if err != nil {
		return err
	}
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	steps := wizard.New()
	stopped := func(err error) error {
		return fmt.Errorf("%s: %w", stepNames[steps.Step()], err)
	}

	stage := staging.New(staging.PolicyFor(p))
	var files []staging.File
	for _, path := range cmd.Args().Tail() {
		f, err := staging.FromPath(path)
		if err != nil {
			return stopped(err)
		}
		files = append(files, f)
	}

	useHtsf := cmd.String("htsf") != ""
	if !useHtsf {
		if err := stage.AddFiles(files); err != nil {
			fmt.Fprintln(w, err.Error())
		}
		if p == pipeline.TCSDR && cmd.Bool("validate-remote") {
			if err := stage.ValidateRemote(ctx, client); err != nil {
				fmt.Fprintln(w, fail(err).Error())
			}
		}
		if errs := stage.Errors(); len(errs) > 0 {
			fmt.Fprintln(w, "File errors:")
			printFileErrors(w, errs)
		}
		if !stage.CanContinue() {
			return stopped(fmt.Errorf("please fix the file errors above"))
		}
	}
	steps.Continue(stepParameters)

	job, err := buildJob(cmd, p, stage)
	if err != nil {
		return stopped(err)
	}
	steps.Continue(stepContact)

	shared := forms.NewShared()
	shared.Email = job.Email
	if v := cmd.String("email"); v != "" {
		shared.Email = v
	}
	shared.JobID = cmd.String("job-id")
	shared.ResultsFormat = constants.ResultsFormat(cmd.String("results-format"))
	if useHtsf {
		shared.Source = forms.SourceHtsf
		shared.Htsf = cmd.String("htsf")
		shared.PoolName = cmd.String("pool-name")
	}
	if err := shared.Validate(); err != nil {
		return stopped(err)
	}
	steps.Continue(stepSubmit)

	var uploadsFor []jobs.Upload
	if pipeline.UsesUploads(p) {
		uploadsFor = stage.Uploads()
	}
	shared.Apply(&job, uploadsFor)

	up := uploads.New()
	up.BatchSize = cmd.Int("concurrency")
	up.OnProgress = func(name string, pct int) {
		fmt.Fprintf(w, "  %s %d%%\n", name, pct)
	}

	var controllerFiles []staging.File
	if pipeline.UsesUploads(p) {
		controllerFiles = stage.Files()
	}
	c := submission.New(p, job, controllerFiles, client, up)
	c.OnStateChange = func(s submission.State) {
		fmt.Fprintf(w, "%s\n", s)
	}

	if err := c.Submit(ctx); err != nil {
		return stopped(fmt.Errorf("%s: %w", c.Banner(), err))
	}

	if p == pipeline.TCSDR && len(job.Primers) > 0 {
		if saved, err := savedPrimers(cmd); err == nil {
			if err := saved.Remember(job.Primers); err != nil {
				fmt.Fprintf(w, "could not remember primers: %v\n", err)
			}
		}
	}

	fmt.Fprintf(w, "Submitted %s job %s. Results will be emailed to %s.\n", p, c.JobId(), job.Email)
	return nil
}
