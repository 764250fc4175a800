package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{http.StatusBadRequest, ErrorClassClient},
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusTooManyRequests, ErrorClassClient},
		{http.StatusNotModified, ErrorClassClient},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		contains []string
	}{
		{
			name: "status error",
			err: &FetchError{
				URL:        "https://pokeapi.co/api/v2/pokemon/0/",
				StatusCode: 404,
				Class:      ErrorClassClient,
				Err:        fmt.Errorf("%w: 404 Not Found", ErrUnexpectedStatus),
			},
			contains: []string{"pokemon/0/", "client error", "status 404", "404 Not Found"},
		},
		{
			name: "network error",
			err: &FetchError{
				URL:   "https://pokeapi.co/api/v2/pokemon/1/",
				Class: ErrorClassNetwork,
				Err:   errors.New("connection refused"),
			},
			contains: []string{"network error", "connection refused"},
		},
		{
			name: "decode error omits status",
			err: &FetchError{
				URL:        "https://pokeapi.co/api/v2/pokemon/1/",
				StatusCode: 200,
				Class:      ErrorClassDecode,
				Err:        errors.New("unexpected EOF"),
			},
			contains: []string{"decode error", "unexpected EOF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want containing %q", msg, want)
				}
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	err := &FetchError{Class: ErrorClassNetwork, Err: baseErr}

	if !errors.Is(err, baseErr) {
		t.Error("errors.Is should find the wrapped error")
	}

	var fetchErr *FetchError
	wrapped := fmt.Errorf("collect: %w", err)
	if !errors.As(wrapped, &fetchErr) {
		t.Error("errors.As should find *FetchError through wrapping")
	}
}

func TestFetchError_Timeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"net timeout", timeoutError{}, true},
		{"cancelled", context.Canceled, false},
		{"status", ErrUnexpectedStatus, false},
		{"nil cause", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &FetchError{Class: ErrorClassNetwork, Err: tt.err}
			if got := err.Timeout(); got != tt.want {
				t.Errorf("Timeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
