package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReadDirectory lists the entries of a directory in the host workspace.
func (c *Client) ReadDirectory(ctx context.Context, path string) (*DirectoryResult, error) {
	resp, err := c.Request(ctx, KindReadDir, map[string]interface{}{
		"path": path,
	})
	if err != nil {
		return nil, err
	}

	result := &DirectoryResult{Success: resp.Success, Error: resp.Error}
	if !resp.Success {
		return result, nil
	}

	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, &result.Entries); err != nil {
			return &DirectoryResult{Error: fmt.Sprintf("malformed directory listing: %v", err)}, nil
		}
	}
	if result.Entries == nil {
		result.Entries = []DirectoryEntry{}
	}
	return result, nil
}

// ReadFile reads a file from the host workspace. String data is returned
// as-is; any other JSON value is returned in its encoded form.
func (c *Client) ReadFile(ctx context.Context, path string) (*FileResult, error) {
	resp, err := c.Request(ctx, KindReadFile, map[string]interface{}{
		"path": path,
	})
	if err != nil {
		return nil, err
	}

	result := &FileResult{Success: resp.Success, Error: resp.Error}
	if !resp.Success || len(resp.Data) == 0 {
		return result, nil
	}

	var text string
	if err := json.Unmarshal(resp.Data, &text); err == nil {
		result.Content = text
	} else {
		result.Content = string(resp.Data)
	}
	return result, nil
}

// OpenFile asks the host to open a file in its editor.
func (c *Client) OpenFile(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, KindOpenFile, map[string]interface{}{
		"path": path,
	})
}

// GetWorkspaceDetails asks the host whether a workspace is open.
func (c *Client) GetWorkspaceDetails(ctx context.Context) (*WorkspaceResult, error) {
	resp, err := c.Request(ctx, KindGetWorkspaceDetails, nil)
	if err != nil {
		return nil, err
	}

	result := &WorkspaceResult{Success: resp.Success, Error: resp.Error}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return result, nil
	}

	if err := json.Unmarshal(resp.Data, &result.Details); err != nil {
		return &WorkspaceResult{Error: fmt.Sprintf("malformed workspace details: %v", err)}, nil
	}
	result.Details.Raw = append(json.RawMessage(nil), resp.Data...)
	return result, nil
}
