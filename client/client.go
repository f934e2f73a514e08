package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"loft/internal/search"
	"loft/internal/tree"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

func (c *Client) postJSON(path string, body any, want int) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s%s", c.baseURL, path),
		"application/json",
		bytes.NewBuffer(data),
	)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != want {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return resp, nil
}

// Workspace operations

func (c *Client) List(path string) ([]tree.Node, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/api/fs/list?path=%s", c.baseURL, url.QueryEscape(path)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var nodes []tree.Node
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) Read(path string) (string, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/api/fs/read?path=%s", c.baseURL, url.QueryEscape(path)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var content string
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) Save(path, content string) error {
	resp, err := c.postJSON("/api/fs/save", map[string]string{
		"path":    path,
		"content": content,
	}, http.StatusCreated)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) Rename(from, to string) error {
	resp, err := c.postJSON("/api/fs/rename", map[string]string{
		"from": from,
		"to":   to,
	}, http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) Delete(path string) error {
	resp, err := c.postJSON("/api/fs/delete", map[string]string{"path": path}, http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) Mkdir(path string) error {
	resp, err := c.postJSON("/api/fs/mkdir", map[string]string{"path": path}, http.StatusCreated)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) Search(path, query string) ([]search.Hit, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/api/fs/search?path=%s&q=%s",
		c.baseURL, url.QueryEscape(path), url.QueryEscape(query)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var hits []search.Hit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (c *Client) Snapshot() (uint64, error) {
	resp, err := c.postJSON("/api/fs/snapshot", struct{}{}, http.StatusOK)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var result struct {
		ID uint64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

// Revision operations

func (c *Client) Revisions() (latest uint64, list []uint64, err error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/api/revisions", c.baseURL))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result struct {
		Latest uint64   `json:"latest"`
		List   []uint64 `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, nil, err
	}
	return result.Latest, result.List, nil
}

// Import uploads a zip archive as a new revision and returns its id.
func (c *Client) Import(archive []byte) (uint64, error) {
	resp, err := c.postJSON("/api/revisions", map[string]string{
		"zip_b64": base64.StdEncoding.EncodeToString(archive),
	}, http.StatusOK)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var result struct {
		ID uint64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

// Fetch streams a single file out of a stored revision.
func (c *Client) Fetch(rev uint64, path string) ([]byte, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/api/revisions/file?rev=%d&path=%s",
		c.baseURL, rev, url.QueryEscape(path)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
