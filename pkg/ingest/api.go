package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ontoforge/ontoforge/internal/model"
	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

// APILoader fetches a dataset from a REST endpoint that returns a JSON
// array of objects, the shape open-data portals serve for row exports.
type APILoader struct {
	Client *http.Client
}

// NewAPILoader returns a loader with a 20 second request timeout.
func NewAPILoader() *APILoader {
	return &APILoader{Client: &http.Client{Timeout: 20 * time.Second}}
}

// Load fetches the endpoint and decodes the response body into records.
// Anything other than a 2xx status or a top-level JSON array is an error.
func (l *APILoader) Load(ctx context.Context, endpoint string) ([]*model.Record, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeFetchFailed, "building dataset request").
			WithContext("endpoint", endpoint)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, oferrors.Wrap(ctx.Err(), oferrors.CodeContextCanceled, "dataset fetch canceled")
		}
		return nil, oferrors.Wrap(err, oferrors.CodeFetchFailed, "fetching dataset").
			WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, oferrors.New(oferrors.CodeFetchFailed,
			fmt.Sprintf("dataset endpoint returned %s", resp.Status)).
			WithContext("endpoint", endpoint)
	}

	var rows []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, oferrors.Wrap(err, oferrors.CodeInvalidFormat, "decoding dataset response").
			WithContext("endpoint", endpoint)
	}
	return mapsToRecords(rows), nil
}
