package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Endpoint paths, relative to the client base URL. The status path
// predates the /v1 prefix on the server and is kept as-is for
// compatibility.
const (
	pathSyncStatus = "/api/sync/status"
	pathRegister   = "/api/v1/farms/register"
	pathIngest     = "/api/v1/ingest"
)

// SyncStatus fetches the per-stream watermarks for a farm. This is the
// first call of every sync cycle; its result decides where extraction
// resumes.
func (c *Client) SyncStatus(ctx context.Context, farmID string) (*Watermarks, error) {
	q := url.Values{}
	q.Set("farm_id", farmID)

	resp, err := c.Do(ctx, "GET", pathSyncStatus+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching sync status: %w", err)
	}
	defer resp.Body.Close()

	var wm Watermarks
	if err := json.NewDecoder(resp.Body).Decode(&wm); err != nil {
		return nil, fmt.Errorf("decoding sync status response: %w", err)
	}

	return &wm, nil
}

// RegisterFarm creates a new farm identity on the cloud side and
// returns the assigned farm ID. Called once per installation, from the
// interactive registration flow.
func (c *Client) RegisterFarm(ctx context.Context, name string) (*Registration, error) {
	body, err := json.Marshal(RegistrationRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("encoding registration request: %w", err)
	}

	resp, err := c.Do(ctx, "POST", pathRegister, body)
	if err != nil {
		return nil, fmt.Errorf("registering farm: %w", err)
	}
	defer resp.Body.Close()

	var reg Registration
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, fmt.Errorf("decoding registration response: %w", err)
	}

	if reg.FarmID == "" {
		return nil, fmt.Errorf("cloud: registration response missing farm_id")
	}

	return &reg, nil
}

// Ingest uploads one cycle's payload. The server upserts by OID, so
// re-sending rows a previous cycle already delivered is harmless.
// Callers must short-circuit empty payloads; an empty upload is a
// programming error, not a no-op.
func (c *Client) Ingest(ctx context.Context, payload *Payload) (*IngestResult, error) {
	if payload.Empty() {
		return nil, fmt.Errorf("cloud: refusing to upload empty payload")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding ingest payload: %w", err)
	}

	resp, err := c.Do(ctx, "POST", pathIngest, body)
	if err != nil {
		return nil, fmt.Errorf("uploading batch: %w", err)
	}
	defer resp.Body.Close()

	var result IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding ingest response: %w", err)
	}

	return &result, nil
}
