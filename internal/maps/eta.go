// README: Arrival-time estimation via the Google Maps Directions API.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

// ETAService estimates arrival times with the Google Maps Directions API.
type ETAService struct {
	client *maps.Client
}

// NewETAService creates an ETAService with the given API key.
func NewETAService(apiKey string) (*ETAService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &ETAService{client: client}, nil
}

// EstimateArrival returns departure plus the driving duration between origin
// and destination. It assumes driving mode.
func (s *ETAService) EstimateArrival(ctx context.Context, origin, dest string, departure time.Time) (time.Time, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: dest,
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return time.Time{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return time.Time{}, fmt.Errorf("no route found")
	}

	var total time.Duration
	for _, leg := range routes[0].Legs {
		total += leg.Duration
	}
	return departure.Add(total), nil
}
