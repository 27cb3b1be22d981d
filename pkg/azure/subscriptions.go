package azure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// Subscription is one subscription visible to the current principal.
type Subscription struct {
	ID    string `json:"subscriptionId"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// ListSubscriptions returns all subscriptions accessible to the principal.
// Zero subscriptions is a legitimate answer, not an error.
func ListSubscriptions(ctx context.Context, authctx *AuthContext) ([]Subscription, error) {
	client, err := armsubscriptions.NewClient(authctx.Credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}

	var subscriptions []Subscription
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub == nil || sub.SubscriptionID == nil {
				continue
			}
			entry := Subscription{ID: *sub.SubscriptionID}
			if sub.DisplayName != nil {
				entry.Name = *sub.DisplayName
			}
			if sub.State != nil {
				entry.State = string(*sub.State)
			}
			subscriptions = append(subscriptions, entry)
		}
	}
	return subscriptions, nil
}

// SubscriptionNames resolves subscription IDs to display names with a
// process-local cache, lazily populated and never invalidated within a run.
type SubscriptionNames struct {
	client *armsubscriptions.Client
	cache  map[string]string
	logger *slog.Logger
}

func NewSubscriptionNames(cred azcore.TokenCredential, logger *slog.Logger) (*SubscriptionNames, error) {
	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionNames{
		client: client,
		cache:  make(map[string]string),
		logger: logger,
	}, nil
}

// ResolveSubscriptionName returns the display name for a subscription ID,
// falling back to the ID itself when the lookup fails.
func (n *SubscriptionNames) ResolveSubscriptionName(ctx context.Context, subscriptionID string) string {
	if name, ok := n.cache[subscriptionID]; ok {
		return name
	}

	name := subscriptionID
	resp, err := n.client.Get(ctx, subscriptionID, nil)
	if err != nil {
		n.logger.Debug("subscription name lookup failed", "subscriptionId", subscriptionID, "error", err)
	} else if resp.DisplayName != nil {
		name = *resp.DisplayName
	}

	n.cache[subscriptionID] = name
	return name
}
