package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const fullListBatch = 500

// PocketBaseStore talks to a PocketBase server over its records REST API.
type PocketBaseStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewPocketBaseStore creates a live store for baseURL. token, if set, is sent
// as the Authorization header.
func NewPocketBaseStore(baseURL, token string, client *http.Client) *PocketBaseStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PocketBaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (s *PocketBaseStore) recordsURL(collection string, parts ...string) string {
	u := s.baseURL + "/api/collections/" + url.PathEscape(collection) + "/records"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func (s *PocketBaseStore) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(data, &payload) != nil || payload.Message == "" {
			payload.Message = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *PocketBaseStore) GetList(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	q.Set("perPage", strconv.Itoa(perPage))
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}

	var res ListResult
	if err := s.do(ctx, http.MethodGet, s.recordsURL(collection)+"?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []Record{}
	}
	return &res, nil
}

func (s *PocketBaseStore) GetFullList(ctx context.Context, collection string, opts ListOptions) ([]Record, error) {
	all := []Record{}
	for page := 1; ; page++ {
		res, err := s.GetList(ctx, collection, page, fullListBatch, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if len(res.Items) < fullListBatch || page >= res.TotalPages {
			return all, nil
		}
	}
}

func (s *PocketBaseStore) GetOne(ctx context.Context, collection, id string) (Record, error) {
	var r Record
	if err := s.do(ctx, http.MethodGet, s.recordsURL(collection, id), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PocketBaseStore) GetFirstListItem(ctx context.Context, collection, filter string) (Record, error) {
	res, err := s.GetList(ctx, collection, 1, 1, ListOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Message: "The requested resource wasn't found."}
	}
	return res.Items[0], nil
}

func (s *PocketBaseStore) Create(ctx context.Context, collection string, data Record) (Record, error) {
	var r Record
	if err := s.do(ctx, http.MethodPost, s.recordsURL(collection), data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PocketBaseStore) Update(ctx context.Context, collection, id string, data Record) (Record, error) {
	var r Record
	if err := s.do(ctx, http.MethodPatch, s.recordsURL(collection, id), data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PocketBaseStore) Delete(ctx context.Context, collection, id string) error {
	return s.do(ctx, http.MethodDelete, s.recordsURL(collection, id), nil, nil)
}

// Health pings the PocketBase health endpoint.
func (s *PocketBaseStore) Health(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, s.baseURL+"/api/health", nil, nil)
}
