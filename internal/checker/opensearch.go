package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"

	"github.com/hazz-dev/conncheck/internal/config"
)

const (
	opensearchService = "OpenSearch"
	opensearchClient  = "go-opensearch"
)

var opensearchIndexBody = map[string]any{
	"settings": map[string]any{
		"number_of_shards": 1,
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"message": map[string]any{"type": "keyword"},
		},
	},
}

// opensearchError is a non-2xx response from the search engine.
type opensearchError struct {
	op     string
	status int
	body   string
}

func (e *opensearchError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.op, e.status, e.body)
}

func (e *opensearchError) Kind() string { return "OpenSearchError" }

type opensearchChecker struct {
	cfg       config.OpenSearch
	gate      Gate
	addresses []string
	transport http.RoundTripper
}

func newOpenSearchChecker(cfg config.OpenSearch, opts Options) *opensearchChecker {
	return &opensearchChecker{
		cfg:       cfg,
		gate:      opts.gate(cfg.Flag(), cfg.Enabled(), cfg.Host, cfg.Port),
		addresses: []string{"http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
	}
}

func (c *opensearchChecker) Service() string { return opensearchService }

func (c *opensearchChecker) Target() Target { return c.gate.target(opensearchService, opensearchClient) }

func (c *opensearchChecker) Check(ctx context.Context) Result {
	return gated(ctx, c.gate, opensearchService, opensearchClient, c.roundTrip)
}

func (c *opensearchChecker) roundTrip(ctx context.Context) (string, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: c.addresses,
		Username:  c.cfg.User,
		Password:  c.cfg.Password,
		Transport: c.transport,
	})
	if err != nil {
		return "", fmt.Errorf("opensearch client: %w", err)
	}

	index := c.cfg.Index
	if err := ensureIndex(ctx, client, index); err != nil {
		return "", err
	}

	docID := uuid.NewString()
	doc, _ := json.Marshal(map[string]string{"message": "go-health-" + docID})
	res, err := client.Index(
		index,
		bytes.NewReader(doc),
		client.Index.WithDocumentID(docID),
		client.Index.WithRefresh("true"),
		client.Index.WithContext(ctx),
	)
	if err := checkResponse("index", res, err); err != nil {
		return "", err
	}
	res.Body.Close()

	res, err = client.Get(index, docID, client.Get.WithContext(ctx))
	if err := checkResponse("get", res, err); err != nil {
		return "", err
	}
	defer res.Body.Close()

	var got struct {
		Source struct {
			Message string `json:"message"`
		} `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		return "", fmt.Errorf("decoding document %s: %w", docID, err)
	}
	return fmt.Sprintf("Indexed doc %s (message=%s)", docID, got.Source.Message), nil
}

// ensureIndex creates index with a minimal mapping unless it already exists.
func ensureIndex(ctx context.Context, client *opensearch.Client, index string) error {
	res, err := client.Indices.Exists([]string{index}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("indices.exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := json.Marshal(opensearchIndexBody)
	res, err = client.Indices.Create(
		index,
		client.Indices.Create.WithBody(bytes.NewReader(body)),
		client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("indices.create: %w", err)
	}
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusBadRequest && strings.Contains(string(raw), "resource_already_exists_exception") {
		return nil
	}
	return &opensearchError{op: "indices.create", status: res.StatusCode, body: string(raw)}
}

// checkResponse turns a transport error or a non-2xx response into an error.
// On success the body is left open for the caller.
func checkResponse(op string, res *opensearchapi.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !res.IsError() {
		return nil
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	return &opensearchError{op: op, status: res.StatusCode, body: string(raw)}
}
