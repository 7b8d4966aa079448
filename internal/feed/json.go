package feed

import (
	"context"
	"encoding/json"
	"fmt"

	appLog "localcal/internal/log"
	"localcal/internal/model"
)

// FetchJSON retrieves the static JSON feed at url: a JSON array of event
// objects {title, date, time, duration?, color?, repeat?}. Every returned
// event is marked static.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) ([]model.Event, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch json feed: %w", err)
	}

	events, err := DecodeJSON(body)
	if err != nil {
		return nil, err
	}

	appLog.Info("json feed loaded", "url", url, "event_count", len(events))
	return events, nil
}

// DecodeJSON decodes a JSON event array and marks each event static.
func DecodeJSON(body []byte) ([]model.Event, error) {
	var events []model.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode json feed: %w", err)
	}

	for i := range events {
		events[i].Static = true
	}
	return events, nil
}
