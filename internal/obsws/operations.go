package obsws

import (
	"encoding/json"
)

// ToggleRecord flips the OBS recording output on or off and reports the
// resulting state.
func (c *Client) ToggleRecord() (bool, error) {
	resp, err := c.sendRequest("ToggleRecord", nil)
	if err != nil {
		return false, err
	}

	var data struct {
		OutputActive bool `json:"outputActive"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return false, err
	}
	return data.OutputActive, nil
}

// GetRecordStatus queries OBS for the current recording status.
func (c *Client) GetRecordStatus() (bool, error) {
	resp, err := c.sendRequest("GetRecordStatus", nil)
	if err != nil {
		return false, err
	}

	var data struct {
		OutputActive   bool   `json:"outputActive"`
		OutputPaused   bool   `json:"outputPaused"`
		OutputTimecode string `json:"outputTimecode"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return false, err
	}
	return data.OutputActive, nil
}

// GetVersion retrieves the OBS and WebSocket plugin versions.
func (c *Client) GetVersion() (string, string, error) {
	resp, err := c.sendRequest("GetVersion", nil)
	if err != nil {
		return "", "", err
	}

	var data struct {
		OBSVersion          string `json:"obsVersion"`
		OBSWebSocketVersion string `json:"obsWebSocketVersion"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return "", "", err
	}
	return data.OBSVersion, data.OBSWebSocketVersion, nil
}
