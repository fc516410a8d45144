// Package mcc is the bridge backend: an HTTP client for a sidecar process
// wrapping the BioLab MCC SDK. The SDK stays external and opaque; this
// client only moves paths, identities and scores across the wire.
package mcc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/high-horse/afis-search/internal/index"
)

// Client implements index.Engine against the bridge's JSON protocol.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New builds a bridge client. The timeout bounds every SDK call end to end;
// zero means no timeout, matching the SDK's blocking behavior.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	Sectors          int     `json:"sectors"`
	Directions       int     `json:"directions"`
	CellHeight       int     `json:"cell_height"`
	CellWidth        int     `json:"cell_width"`
	MinValidCells    int     `json:"min_valid_cells"`
	MinPairs         int     `json:"min_pairs"`
	AngularTolerance float64 `json:"angular_tolerance"`
	SpatialTolerance float64 `json:"spatial_tolerance"`
	Seed             int     `json:"seed"`
}

type addRequest struct {
	Path string `json:"caminho"`
	ID   int    `json:"id"`
}

type pathRequest struct {
	Path string `json:"caminho"`
}

type searchRequest struct {
	Probe      string `json:"caminho_probe"`
	Exhaustive bool   `json:"exaustiva"`
}

type searchResponse struct {
	IDs    []int     `json:"ids"`
	Scores []float64 `json:"scores"`
}

type errorEnvelope struct {
	Status   string `json:"status"`
	Mensagem string `json:"mensagem"`
}

func (c *Client) CreateIndex(ctx context.Context, params index.Params) error {
	return c.post(ctx, http.MethodPost, "/index", createRequest{
		Sectors:          params.Sectors,
		Directions:       params.Directions,
		CellHeight:       params.CellHeight,
		CellWidth:        params.CellWidth,
		MinValidCells:    params.MinValidCells,
		MinPairs:         params.MinPairs,
		AngularTolerance: params.AngularTolerance,
		SpatialTolerance: params.SpatialTolerance,
		Seed:             params.Seed,
	}, nil)
}

func (c *Client) AddTemplate(ctx context.Context, path string, id int) error {
	return c.post(ctx, http.MethodPost, "/index/templates", addRequest{Path: path, ID: id}, nil)
}

func (c *Client) SaveIndex(ctx context.Context, path string) error {
	return c.post(ctx, http.MethodPost, "/index/save", pathRequest{Path: path}, nil)
}

func (c *Client) LoadIndex(ctx context.Context, path string) error {
	return c.post(ctx, http.MethodPost, "/index/load", pathRequest{Path: path}, nil)
}

func (c *Client) Search(ctx context.Context, probePath string, exhaustive bool) ([]int, []float64, error) {
	var resp searchResponse
	if err := c.post(ctx, http.MethodPost, "/search", searchRequest{Probe: probePath, Exhaustive: exhaustive}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.IDs, resp.Scores, nil
}

func (c *Client) ReleaseIndex(ctx context.Context) error {
	return c.post(ctx, http.MethodDelete, "/index", nil, nil)
}

// post sends one bridge call and decodes the response into out when given.
// Non-2xx responses carry {status, mensagem} and surface as errors.
func (c *Client) post(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding bridge request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building bridge request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("calling mcc bridge %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Mensagem != "" {
			return fmt.Errorf("mcc bridge %s: %s", path, env.Mensagem)
		}
		return fmt.Errorf("mcc bridge %s: unexpected status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding bridge response: %w", err)
		}
	}
	return nil
}
