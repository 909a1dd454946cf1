package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"taskboard/apperrors"
	"taskboard/models"
)

// errorBody is the JSON error envelope the server writes.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func decodeError(op string, resp *http.Response) error {
	var body errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Kind == "" {
		kind := apperrors.KindInternal
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			kind = apperrors.KindSessionInvalid
		case resp.StatusCode == http.StatusNotFound:
			kind = apperrors.KindNotFound
		case resp.StatusCode == http.StatusMethodNotAllowed:
			kind = apperrors.KindMethodNotAllowed
		case resp.StatusCode >= http.StatusInternalServerError:
			kind = apperrors.KindProviderUnavailable
		}
		return apperrors.E(kind, op, fmt.Errorf("server responded %s", resp.Status))
	}
	return apperrors.E(apperrors.ParseKind(body.Kind), op, errors.New(body.Error))
}

func transportError(op string, err error) error {
	return apperrors.E(apperrors.KindProviderUnavailable, op, err)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// EndpointPropagator hands the token pair to the server's session
// propagation endpoint. The server answers with its session cookies, which
// land in the HTTP client's cookie jar.
type EndpointPropagator struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (p EndpointPropagator) Propagate(ctx context.Context, pair models.TokenPair) error {
	const op = "client.Propagate"

	body, err := json.Marshal(pair)
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(p.BaseURL, "/api/auth/set"), bytes.NewReader(body))
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(p.HTTPClient).Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(op, resp)
	}
	var ok struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil || !ok.OK {
		return apperrors.E(apperrors.KindInternal, op, errors.New("unexpected propagation response"))
	}
	return nil
}

// Navigate loads path as a fresh request, following redirects, and returns
// the path the server finally rendered. Landing on the entry page means the
// server did not accept the session.
func Navigate(ctx context.Context, hc *http.Client, baseURL, path string) (string, error) {
	const op = "client.Navigate"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, path), nil)
	if err != nil {
		return "", apperrors.E(apperrors.KindInternal, op, err)
	}
	resp, err := httpClient(hc).Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	final := resp.Request.URL.Path
	if resp.StatusCode != http.StatusOK {
		return final, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("%s answered %s", final, resp.Status))
	}
	if path != "/" && final == "/" {
		return final, apperrors.E(apperrors.KindSessionInvalid, op, errors.New("redirected to the entry page"))
	}
	return final, nil
}

func httpClient(hc *http.Client) *http.Client {
	if hc == nil {
		return http.DefaultClient
	}
	return hc
}

// TaskAPI calls the JSON task endpoints with a bearer token.
type TaskAPI struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

func (a TaskAPI) do(ctx context.Context, op, method, path string, in, out any, want int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperrors.E(apperrors.KindInternal, op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, joinURL(a.BaseURL, path), body)
	if err != nil {
		return apperrors.E(apperrors.KindInternal, op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := httpClient(a.HTTPClient).Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.E(apperrors.KindInternal, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (a TaskAPI) List(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	if err := a.do(ctx, "client.ListTasks", http.MethodGet, "/api/tasks", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

func (a TaskAPI) Get(ctx context.Context, id string) (models.Task, error) {
	var out models.Task
	err := a.do(ctx, "client.GetTask", http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &out, http.StatusOK)
	return out, err
}

func (a TaskAPI) Create(ctx context.Context, in any) (models.Task, error) {
	var out models.Task
	err := a.do(ctx, "client.CreateTask", http.MethodPost, "/api/tasks", in, &out, http.StatusCreated)
	return out, err
}

func (a TaskAPI) Delete(ctx context.Context, id string) error {
	return a.do(ctx, "client.DeleteTask", http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// SignOut asks the server to revoke the session and drop its cookies.
func (a TaskAPI) SignOut(ctx context.Context) error {
	return a.do(ctx, "client.SignOut", http.MethodPost, "/auth/signout", nil, nil, http.StatusNoContent)
}
