package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

// Labels returns the mailbox labels keyed by name.
func (c *Client) Labels(ctx context.Context) (map[string]*gmail.Label, error) {
	var res *gmail.ListLabelsResponse
	err := c.observe(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		res, err = c.svc.Labels.List(userID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make(map[string]*gmail.Label, len(res.Labels))
	for _, l := range res.Labels {
		labels[l.Name] = l
	}
	return labels, nil
}

// EnsureLabel returns the ID of the user label with the given name, creating
// the label if it does not exist.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	labels, err := c.Labels(ctx)
	if err != nil {
		return "", err
	}
	if l, ok := labels[name]; ok {
		return l.Id, nil
	}

	var created *gmail.Label
	err = c.observe(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		created, err = c.svc.Labels.Create(userID, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}
	return created.Id, nil
}

// AddLabel applies a label to a message.
func (c *Client) AddLabel(ctx context.Context, messageID, labelID string) error {
	err := c.observe(ctx, instrumentation.OperationModify, func(ctx context.Context) error {
		_, err := c.svc.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: []string{labelID},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to label message %s: %w", messageID, err)
	}
	return nil
}
