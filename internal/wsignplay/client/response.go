package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// maxErrorBody bounds how much of an error body is read
const maxErrorBody = 64 << 10

// decodeBody decodes a JSON response into target and closes the body
func decodeBody(resp *http.Response, target interface{}, op string) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return werrors.NewError("UNAVAILABLE", "error decoding response", op, fmt.Errorf("%w: %v", werrors.ErrUnavailable, err))
	}
	return nil
}

// handleResponse turns a failed response into a classified error.
// Suspension and credential rejection are recognized by error code first and
// by HTTP status otherwise.
func handleResponse(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	defer resp.Body.Close()
	var apiErr v1alpha1.Error
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(data, &apiErr)

	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg)

	switch {
	case apiErr.Code == v1alpha1.ErrorCodeSuspended,
		resp.StatusCode == http.StatusLocked:
		return werrors.NewError(v1alpha1.ErrorCodeSuspended, msg, op, werrors.ErrSuspended)
	case apiErr.Code == v1alpha1.ErrorCodeCredentialRejected,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return werrors.NewError(v1alpha1.ErrorCodeCredentialRejected, msg, op, werrors.ErrCredentialRejected)
	case resp.StatusCode == http.StatusNotFound:
		return werrors.NewError("NOT_FOUND", msg, op, werrors.ErrNotFound)
	}

	code := apiErr.Code
	if code == "" {
		code = "UNAVAILABLE"
	}
	return werrors.NewError(code, msg, op, werrors.ErrUnavailable)
}
