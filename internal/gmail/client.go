package gmail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

const (
	// userID addresses the authenticated mailbox.
	userID = "me"

	// listPageSize is the page size used when searching messages.
	listPageSize = 100
)

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client. Authentication is supplied through opts,
// typically option.WithHTTPClient with an OAuth2 client.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// WithMetrics sets the metrics recorder used for API call metrics.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// observe records one API call in metrics and on a span.
func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)
	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, instrumentation.StatusFor(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// ForeachMessage calls fn for every message matching the query, following
// result pages until exhausted. The messages carry only Id and ThreadId.
func (c *Client) ForeachMessage(ctx context.Context, q string, fn func(*gmail.Message) error) error {
	pageToken := ""
	for {
		var res *gmail.ListMessagesResponse
		err := c.observe(ctx, instrumentation.OperationList, func(ctx context.Context) error {
			req := c.svc.Messages.List(userID).Q(q).MaxResults(listPageSize).Context(ctx)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to list messages for %q: %w", q, err)
		}
		for _, m := range res.Messages {
			if err := fn(m); err != nil {
				return err
			}
		}
		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

// GetMessage retrieves a full Gmail message.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.observe(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(userID, messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// HeaderValue returns the first header with the given name (case-insensitive).
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
