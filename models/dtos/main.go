package dtos

import "time"

type GeneralError struct {
	Message string `json:"message"`
}

// GeneralErrorResponseDto keeps a top-level `error` so callers that only
// read `{error}` get the first message without walking `errors`.
type GeneralErrorResponseDto struct {
	Error     string         `json:"error"`
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}

type ListRequestDto struct {
	Password string `json:"password"`
}

type CommitResponseDto struct {
	Id     string `json:"id"`
	Submit bool   `json:"submit"`
}

type ValidateFilesRequestDto struct {
	FileNames []string `json:"fileNames"`
}

type ValidatedFileDto struct {
	FileName string   `json:"fileName"`
	LibName  string   `json:"libName,omitempty"`
	Errors   []string `json:"errors"`
}

type ValidateFilesResponseDto struct {
	Files   []ValidatedFileDto `json:"files"`
	AllPass bool               `json:"allPass"`
	Error   string             `json:"error,omitempty"`
}
