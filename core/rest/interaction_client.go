package rest

import (
	"context"
	"net/http"
)

// InteractionClient issues the webhook calls bound to an interaction token:
// the original response and its follow-ups. All calls for one token share a
// single bucket because the vendor rate-limits them per webhook.
type InteractionClient struct {
	exec  *Executor
	appID string
}

// NewInteractionClient creates a webhook sub-client for the application.
func NewInteractionClient(exec *Executor, appID string) *InteractionClient {
	return &InteractionClient{exec: exec, appID: appID}
}

func (c *InteractionClient) webhookPath(token string) string {
	return "/webhooks/" + c.appID + "/" + token
}

func (c *InteractionClient) bucketKey(token string) string {
	return "webhook:" + token
}

// OriginalResponse fetches the message created by the initial response.
func (c *InteractionClient) OriginalResponse(ctx context.Context, token string, opts ...CallOption) (*Message, error) {
	return c.message(ctx, token, Request{
		Method: http.MethodGet,
		Path:   c.webhookPath(token) + "/messages/@original",
	}, opts)
}

// EditOriginalResponse edits the message created by the initial response.
func (c *InteractionClient) EditOriginalResponse(ctx context.Context, token string, edit WebhookMessageEdit, opts ...CallOption) (*Message, error) {
	return c.message(ctx, token, Request{
		Method: http.MethodPatch,
		Path:   c.webhookPath(token) + "/messages/@original",
		Body:   edit,
	}, opts)
}

// DeleteOriginalResponse deletes the message created by the initial response.
func (c *InteractionClient) DeleteOriginalResponse(ctx context.Context, token string, opts ...CallOption) error {
	_, err := c.exec.Do(ctx, c.bucketKey(token), Request{
		Method: http.MethodDelete,
		Path:   c.webhookPath(token) + "/messages/@original",
	}, opts...)
	return err
}

// CreateFollowup sends an additional message on the interaction token.
func (c *InteractionClient) CreateFollowup(ctx context.Context, token string, msg WebhookMessage, opts ...CallOption) (*Message, error) {
	return c.message(ctx, token, Request{
		Method: http.MethodPost,
		Path:   c.webhookPath(token) + "?wait=true",
		Body:   msg,
	}, opts)
}

// FollowupMessage fetches a follow-up message by id.
func (c *InteractionClient) FollowupMessage(ctx context.Context, token, messageID string, opts ...CallOption) (*Message, error) {
	return c.message(ctx, token, Request{
		Method: http.MethodGet,
		Path:   c.webhookPath(token) + "/messages/" + messageID,
	}, opts)
}

// EditFollowup edits a follow-up message by id.
func (c *InteractionClient) EditFollowup(ctx context.Context, token, messageID string, edit WebhookMessageEdit, opts ...CallOption) (*Message, error) {
	return c.message(ctx, token, Request{
		Method: http.MethodPatch,
		Path:   c.webhookPath(token) + "/messages/" + messageID,
		Body:   edit,
	}, opts)
}

// DeleteFollowup deletes a follow-up message by id.
func (c *InteractionClient) DeleteFollowup(ctx context.Context, token, messageID string, opts ...CallOption) error {
	_, err := c.exec.Do(ctx, c.bucketKey(token), Request{
		Method: http.MethodDelete,
		Path:   c.webhookPath(token) + "/messages/" + messageID,
	}, opts...)
	return err
}

func (c *InteractionClient) message(ctx context.Context, token string, req Request, opts []CallOption) (*Message, error) {
	resp, err := c.exec.Do(ctx, c.bucketKey(token), req, opts...)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := resp.Decode(&msg); err != nil {
		return nil, err
	}
	msg.Raw = resp.Body
	return &msg, nil
}
