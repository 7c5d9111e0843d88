package client

import (
	"context"
	"encoding/json"
	"fmt"

	"urutibiz/pkg/model"
)

const expirationHoursPath = "/api/v1/system-settings/" + model.SettingBookingExpirationHours

type SettingsClient struct {
	httpClient *HttpClient
}

func NewSettingsClient(baseURL string) *SettingsClient {
	return &SettingsClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *SettingsClient) GetExpirationHours(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, expirationHoursPath)
}

func (c *SettingsClient) SetExpirationHours(ctx context.Context, hours int) (*Response, error) {
	return c.httpClient.PUT(ctx, expirationHoursPath, model.SetExpirationRequest{Hours: hours})
}

func (c *SettingsClient) DecodePolicy(resp *Response) (*model.ExpirationPolicy, error) {
	var wrapper struct {
		Data *model.ExpirationPolicy `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode expiration policy %s: %w", resp, err)
	}
	if wrapper.Data == nil {
		return nil, fmt.Errorf("response has no policy: %s", resp)
	}
	return wrapper.Data, nil
}
