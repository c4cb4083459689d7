package putio

import (
	"context"
	"fmt"
	"time"
)

// AppID identifies this application to the OOB authorization endpoint.
const AppID = "4701"

type oobCodeResponse struct {
	Code string `json:"code"`
}

type oobTokenResponse struct {
	OauthToken string `json:"oauth_token"`
}

// GetOOBCode requests a new out-of-band authorization code. The user links
// the code to their account at put.io/link.
func (c *Client) GetOOBCode(ctx context.Context) (string, error) {
	var payload oobCodeResponse
	if err := c.do(ctx, "GET", "/oauth2/oob/code?app_id="+AppID, nil, "", &payload); err != nil {
		return "", err
	}
	if payload.Code == "" {
		return "", fmt.Errorf("oob endpoint returned empty code")
	}
	return payload.Code, nil
}

// CheckOOBCode checks whether the code has been linked yet. Returns the
// OAuth token once linked, or "" while still pending.
func (c *Client) CheckOOBCode(ctx context.Context, code string) (string, error) {
	var payload oobTokenResponse
	if err := c.do(ctx, "GET", "/oauth2/oob/code/"+code, nil, "", &payload); err != nil {
		return "", err
	}
	return payload.OauthToken, nil
}

// WaitForOOBToken polls until the user links the code, returning the token.
func (c *Client) WaitForOOBToken(ctx context.Context, code string, interval time.Duration) (string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			token, err := c.CheckOOBCode(ctx, code)
			if err != nil {
				if IsTransient(err) {
					continue
				}
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
	}
}
