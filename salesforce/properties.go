package salesforce

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const propertyPath = "/services/apexrest/Property__c/"

// UpstreamError carries a non-success platform response. Status code,
// content type and body are passed through to the proxy's caller verbatim.
type UpstreamError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, string(e.Body))
}

// PropertyClient forwards property CRUD calls to the platform's Apex REST
// endpoint using the broker's current session.
type PropertyClient struct {
	broker     *Broker
	httpClient *http.Client
}

// NewPropertyClient creates a PropertyClient. A nil httpClient selects
// http.DefaultClient.
func NewPropertyClient(broker *Broker, httpClient *http.Client) *PropertyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PropertyClient{broker: broker, httpClient: httpClient}
}

// Get fetches one property record and returns the upstream JSON body.
func (c *PropertyClient) Get(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, propertyPath+id, nil, "application/json")
}

// Create forwards a property creation payload and returns the upstream JSON
// body.
func (c *PropertyClient) Create(ctx context.Context, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, propertyPath, payload, "application/json")
}

// Delete removes a property record and returns the upstream body as raw
// text.
func (c *PropertyClient) Delete(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, propertyPath+id, nil, "")
}

// do performs one upstream call. Before the call the session must exist;
// otherwise ErrNotAuthenticated is returned and nothing goes on the wire.
// A single upstream 401 triggers one broker refresh and one retry; a second
// 401 passes through like any other upstream error.
func (c *PropertyClient) do(ctx context.Context, method, path string, payload []byte, contentType string) ([]byte, error) {
	sess := c.broker.Current()
	if sess == nil {
		return nil, ErrNotAuthenticated
	}

	body, status, respType, err := c.send(ctx, sess, method, path, payload, contentType)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		if refreshErr := c.broker.Refresh(ctx, sess); refreshErr != nil {
			return nil, &UpstreamError{StatusCode: status, ContentType: respType, Body: body}
		}
		fresh := c.broker.Current()
		if fresh == nil || fresh == sess {
			return nil, &UpstreamError{StatusCode: status, ContentType: respType, Body: body}
		}
		body, status, respType, err = c.send(ctx, fresh, method, path, payload, contentType)
		if err != nil {
			return nil, err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &UpstreamError{StatusCode: status, ContentType: respType, Body: body}
	}

	return body, nil
}

func (c *PropertyClient) send(ctx context.Context, sess *Session, method, path string, payload []byte, contentType string) ([]byte, int, string, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method,
		strings.TrimRight(sess.InstanceURL, "/")+path, reqBody)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("upstream call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to read upstream response: %w", err)
	}

	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}
