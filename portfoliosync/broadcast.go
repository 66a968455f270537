package portfoliosync

import (
	"context"

	"github.com/fieldlend/portfolio_backend/config"
)

// Events go out on a per-organization channel. The external broadcaster owns
// delivery to connected clients; this side only produces the payload.
func eventChannel(organizationId string) string {
	return "portfolio:events:" + organizationId
}

func BroadcastEvent(ctx context.Context, payload EventPayload) {
	logger := config.GetLogger()
	if err := config.PublishEvent(ctx, eventChannel(payload.OrganizationId), payload); err != nil {
		config.LogError(logger, "portfoliosync", "BroadcastEvent", payload.Type, payload.OrganizationId, err)
	}
}

func BroadcastScoresUpdated(ctx context.Context, organizationId string, clientId uint) {
	BroadcastEvent(ctx, EventPayload{
		Type:           EventScoresUpdated,
		OrganizationId: organizationId,
		ClientId:       clientId,
	})
}

func BroadcastWeightsChanged(ctx context.Context, organizationId string, recalculated int) {
	BroadcastEvent(ctx, EventPayload{
		Type:           EventWeightsChanged,
		OrganizationId: organizationId,
		Detail:         map[string]int{"recalculated": recalculated},
	})
}
