package errors

import "errors"

// Codes shared by the domain packages and the HTTP transport.
const (
	CodeInvalidInput        = "invalid_input"
	CodeEmptyCorpus         = "empty_corpus"
	CodeNoEmbeddings        = "no_embeddings"
	CodeIndexNotReady       = "index_not_ready"
	CodeProviderUnavailable = "provider_unavailable"
	CodeCacheIO             = "cache_io"
	CodeCorpus              = "corpus_error"
	CodeLLM                 = "llm_error"
	CodeInvalidToken        = "invalid_token"
	CodeConfig              = "config_error"
	CodeStats               = "stats_error"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the outermost AppError code, or "" when err carries none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
