package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"primerid/api/client/apiclient"
	"primerid/api/models"
	"primerid/api/models/constants"
	"primerid/api/models/constants/pipeline"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v3"
)

// LoadConfig reads an optional env file, then the portal's environment.
func LoadConfig(envFile string) (*models.Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	var cfg models.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

// newClient resolves the portal url from --url, then PRIMERID_PUBLIC_URL,
// then the local port.
func newClient(cmd *cli.Command) (*apiclient.Client, *models.Config, error) {
	cfg, err := LoadConfig(cmd.String("env"))
	if err != nil {
		return nil, nil, err
	}

	url := cmd.String("url")
	if url == "" {
		url = cfg.Api.Url
	}
	if url == "" {
		url = "http://localhost:" + cfg.Api.Port
	}

	c := apiclient.New(url, cfg.Api.RequestTimeout)
	c.ApiKey = cfg.Api.ApiKey
	return c, cfg, nil
}

func pipelineArg(cmd *cli.Command) (constants.Pipeline, error) {
	name := cmd.Args().First()
	p := pipeline.CastToPipeline(name)
	if p == pipeline.Unknown {
		return p, fmt.Errorf("unknown pipeline %q, expected one of %v", name, pipeline.All)
	}
	return p, nil
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openInput reads a file, or stdin for "-".
func openInput(cmd *cli.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		if r := cmd.Root().Reader; r != nil {
			return io.NopCloser(r), nil
		}
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// fail prints a banner-style message for client errors.
func fail(err error) error {
	var re *apiclient.RemoteError
	if errors.As(err, &re) {
		return fmt.Errorf("%s (HTTP %d)", re.Message, re.StatusCode)
	}
	return err
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
