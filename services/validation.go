package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"primerid/api/models"
	"primerid/api/models/dtos"
	"primerid/api/utils"

	"github.com/Jeffail/gabs"
)

var ErrValidatorNotConfigured = errors.New("file name validation service is not configured")

// FileNameValidator proxies TCS/DR file names to the viral_seq validation server.
type FileNameValidator struct {
	url    string
	client *http.Client
	logger Logger
}

func NewFileNameValidator(cfg *models.Config, logger Logger) *FileNameValidator {
	return &FileNameValidator{
		url:    strings.TrimRight(cfg.Services.ValidationUrl, "/"),
		client: utils.NewHttpClient(cfg.Api.RequestTimeout),
		logger: logger,
	}
}

func (v *FileNameValidator) Validate(ctx context.Context, fileNames []string) (dtos.ValidateFilesResponseDto, error) {
	if v.url == "" {
		return dtos.ValidateFilesResponseDto{}, ErrValidatorNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url+"/validate_file_names", strings.NewReader(strings.Join(fileNames, ",")))
	if err != nil {
		return dtos.ValidateFilesResponseDto{}, err
	}
	req.Header.Set("Content-Type", "text/plain")

	res, err := v.client.Do(req)
	if err != nil {
		v.logger.Errorf("validate_file_names: %v", err)
		return dtos.ValidateFilesResponseDto{}, fmt.Errorf("validate file names: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return dtos.ValidateFilesResponseDto{}, fmt.Errorf("read validation response: %w", err)
	}
	if res.StatusCode >= 300 {
		return dtos.ValidateFilesResponseDto{}, fmt.Errorf("validate file names: %s", res.Status)
	}

	return parseValidationResponse(body)
}

func parseValidationResponse(body []byte) (dtos.ValidateFilesResponseDto, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return dtos.ValidateFilesResponseDto{}, fmt.Errorf("parse validation response: %w", err)
	}

	out := dtos.ValidateFilesResponseDto{Files: []dtos.ValidatedFileDto{}}
	out.AllPass, _ = parsed.Path("allPass").Data().(bool)
	out.Error, _ = parsed.Path("error").Data().(string)

	if !parsed.Exists("files") {
		return out, nil
	}
	files, err := parsed.S("files").Children()
	if err != nil {
		return out, fmt.Errorf("read validated files: %w", err)
	}
	for _, f := range files {
		file := dtos.ValidatedFileDto{Errors: []string{}}
		file.FileName, _ = f.Path("fileName").Data().(string)
		file.LibName, _ = f.Path("libName").Data().(string)

		// errors may be null, a list, or a single string
		if errs, err := f.S("errors").Children(); err == nil {
			for _, e := range errs {
				if msg, ok := e.Data().(string); ok {
					file.Errors = append(file.Errors, msg)
				}
			}
		} else if msg, ok := f.Path("errors").Data().(string); ok && msg != "" {
			file.Errors = append(file.Errors, msg)
		}
		out.Files = append(out.Files, file)
	}
	return out, nil
}
