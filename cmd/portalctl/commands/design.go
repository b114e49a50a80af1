package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"primerid/api/client/primers"
	platformFormat "primerid/api/models/constants/platform-format"
	"primerid/api/models/jobs"
	"primerid/api/models/viralseq"

	"github.com/spf13/cast"
	"github.com/urfave/cli/v3"
)

const designHelp = `commands:
  add               open a new primer
  edit N            open primer N
  delete N          remove primer N
  FIELD=VALUE       set a field on the open primer
  next | back       move between pages
  save | cancel     keep or drop the open primer
  list              show the primer list
  done              finish`

// DesignSession drives d with one command per line from r and reports
// pages and field errors to w. It stops at "done" or end of input and
// refuses to finish while a primer is still open.
func DesignSession(r io.Reader, w io.Writer, d *primers.Designer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if field, value, ok := strings.Cut(line, "="); ok && !strings.ContainsAny(strings.TrimSpace(field), " \t") {
			if !d.Editing {
				fmt.Fprintln(w, "No primer is open. Use add or edit N first.")
				continue
			}
			if err := d.Set(strings.TrimSpace(field), strings.TrimSpace(value)); err != nil {
				fmt.Fprintln(w, err.Error())
			}
			continue
		}

		verb, arg, _ := strings.Cut(line, " ")
		switch verb {
		case "add":
			d.Add()
			printPage(w, d)
		case "edit", "delete":
			n, err := cast.ToIntE(strings.TrimSpace(arg))
			if err != nil {
				fmt.Fprintf(w, "%s expects a primer number, got %q\n", verb, arg)
				continue
			}
			if verb == "edit" {
				err = d.Edit(n - 1)
			} else {
				err = d.Delete(n - 1)
			}
			if err != nil {
				fmt.Fprintln(w, err.Error())
				continue
			}
			if verb == "edit" {
				printPage(w, d)
			}
		case "next", "back", "save", "cancel":
			if !d.Editing {
				fmt.Fprintln(w, "No primer is open. Use add or edit N first.")
				continue
			}
			switch verb {
			case "next":
				if d.Next() {
					printPage(w, d)
				} else if len(d.Errors) > 0 {
					printFieldErrors(w, d.Errors)
				} else {
					fmt.Fprintln(w, "Last page. Use save to keep the primer.")
				}
			case "back":
				d.Back()
				printPage(w, d)
			case "save":
				if err := d.Save(); err != nil {
					printFieldErrors(w, d.Errors)
					continue
				}
				fmt.Fprintf(w, "Saved primer %d.\n", len(d.Primers))
			case "cancel":
				d.Cancel()
			}
		case "list":
			for i, p := range d.Primers {
				fmt.Fprintf(w, "%d\t%s\n", i+1, p.Region)
			}
		case "help":
			fmt.Fprintln(w, designHelp)
		case "done", "quit":
			return finishDesign(d)
		default:
			fmt.Fprintf(w, "unknown command %q\n", verb)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return finishDesign(d)
}

func finishDesign(d *primers.Designer) error {
	if d.Editing {
		return fmt.Errorf("primer %q is still open, save or cancel it first", d.Draft.Region)
	}
	if len(d.Primers) == 0 {
		return fmt.Errorf("no primers were saved")
	}
	return nil
}

func printPage(w io.Writer, d *primers.Designer) {
	fmt.Fprintf(w, "page: %s\n", d.Page().ID)
}

func printFieldErrors(w io.Writer, errs jobs.FieldErrors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, errs[f])
	}
}

func errOut(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// PrimersDesignAction builds a primer list with the designer and prints
// it as viral_seq tcs parameters, ready for submit --params.
func PrimersDesignAction(ctx context.Context, cmd *cli.Command) error {
	params := viralseq.Pipeline{
		ErrorRate:      cmd.Float("error-rate"),
		PlatformFormat: platformFormat.Default,
		Email:          cmd.String("email"),
	}
	if path := cmd.String("from"); path != "" {
		loaded, err := readParams(path)
		if err != nil {
			return err
		}
		if !cmd.IsSet("error-rate") {
			params.ErrorRate = loaded.ErrorRate
		}
		if !cmd.IsSet("email") {
			params.Email = loaded.Email
		}
		if loaded.PlatformFormat != 0 {
			params.PlatformFormat = loaded.PlatformFormat
		}
		params.Primers = loaded.Primers
	}
	if cmd.IsSet("platform-format") {
		params.PlatformFormat = cmd.Int("platform-format")
	}
	if !platformFormat.IsKnownPlatformFormat(params.PlatformFormat) {
		return fmt.Errorf("platform format must be one of %v", platformFormat.All)
	}

	d := primers.NewDesigner()
	d.Primers = params.Primers

	if cmd.Bool("use-saved") {
		saved, err := savedPrimers(cmd)
		if err != nil {
			return err
		}
		list, err := saved.List()
		if err != nil {
			return err
		}
		for _, p := range list {
			if !d.HasRegion(p.Region) {
				d.TogglePreset(p)
			}
		}
	}

	in, err := openInput(cmd, "-")
	if err != nil {
		return err
	}
	defer in.Close()

	if err := DesignSession(in, errOut(cmd), d); err != nil {
		return err
	}

	params.Primers = d.Primers
	return printJSON(out(cmd), viralseq.ToCLI(params))
}
