package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/enginelink/pkg/constants"
	"github.com/agentstation/enginelink/pkg/errors"
)

// ReadBody reads and closes the body of an exchange, bounded by
// constants.MaxResponseBytes.
func ReadBody(ex *Exchange) ([]byte, error) {
	defer func() { _ = ex.Close() }()
	body, err := io.ReadAll(io.LimitReader(ex.Response.Body, constants.MaxResponseBytes))
	if err != nil {
		return nil, errors.WrapTransport(err)
	}
	return body, nil
}

// DecodeJSON reads the body of ex and decodes it into target.
// HTML bodies become AuthRedirectError when the exchange ended on the login
// domain and NonJSONResponseError otherwise, whatever the status code.
// Non-2xx statuses and undecodable JSON become UpstreamHTTPError.
// A nil target only checks the response.
func DecodeJSON(ex *Exchange, target any) error {
	body, err := ReadBody(ex)
	if err != nil {
		return err
	}
	if err := Check(ex, body); err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		e := upstream(ex, "invalid JSON response", body)
		e.Err = err
		return e
	}
	return nil
}

// Check classifies an already read response body.
func Check(ex *Exchange, body []byte) error {
	if IsHTML(body) {
		if ex.AuthRedirect {
			return &errors.AuthRedirectError{
				RedirectURI: ex.Final.String(),
				Preview:     errors.Preview(body),
			}
		}
		return &errors.NonJSONResponseError{
			URI:     ex.Final.String(),
			Preview: errors.Preview(body),
		}
	}
	if code := ex.Response.StatusCode; code < 200 || code > 299 {
		return upstream(ex, http.StatusText(code), body)
	}
	return nil
}

// IsHTML reports whether body starts with '<' once leading whitespace and a
// byte order mark are skipped.
func IsHTML(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func upstream(ex *Exchange, reason string, body []byte) *errors.UpstreamHTTPError {
	method := http.MethodGet
	if ex.Response.Request != nil {
		method = ex.Response.Request.Method
	}
	e := errors.NewUpstreamHTTPError(ex.Response.StatusCode, reason, method, ex.Final.String())
	e.Preview = errors.Preview(body)
	return e
}
