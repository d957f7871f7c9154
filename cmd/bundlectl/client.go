package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

// apiError es el cuerpo de error que devuelve bundled.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// do envía la request. in, si no es nil, va como cuerpo JSON.
func (c *client) do(method, path string, in any) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-Admin-API-Key", c.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

// call ejecuta la request y decodifica la respuesta 2xx en out (si no es nil).
// Devuelve el cuerpo crudo para la salida json.
func (c *client) call(method, path string, out any) ([]byte, error) {
	return c.send(method, path, nil, out)
}

// send es call con cuerpo JSON.
func (c *client) send(method, path string, in, out any) ([]byte, error) {
	status, body, err := c.do(method, path, in)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, responseError(status, body)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("respuesta inválida: %w", err)
		}
	}
	return body, nil
}

func responseError(status int, body []byte) error {
	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Code != "" {
		if e.Detail != "" {
			return fmt.Errorf("%s (status=%d): %s: %s", e.Code, status, e.Message, e.Detail)
		}
		return fmt.Errorf("%s (status=%d): %s", e.Code, status, e.Message)
	}
	return fmt.Errorf("status=%d body=%s", status, string(body))
}

func printJSON(w io.Writer, body []byte) {
	var buf bytes.Buffer
	if json.Indent(&buf, body, "", "  ") == nil {
		fmt.Fprintln(w, buf.String())
		return
	}
	fmt.Fprintln(w, string(body))
}
