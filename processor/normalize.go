package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsflow/models"
)

// ErrMissingTime marks a payload without the required publish timestamp.
// Such messages are dropped and logged, never fatal to the stream.
var ErrMissingTime = errors.New("news payload missing time field")

// rawNewsPayload is the union of the two upstream schemas: one convention
// uses en/url/type, the other title/link/source. Both appear on the wire.
type rawNewsPayload struct {
	En      string          `json:"en"`
	Title   string          `json:"title"`
	URL     string          `json:"url"`
	Link    string          `json:"link"`
	Body    string          `json:"body"`
	Source  string          `json:"source"`
	Type    string          `json:"type"`
	Time    *int64          `json:"time"`
	Coin    string          `json:"coin"`
	ID      int64           `json:"_id"`
	Actions []models.Action `json:"actions"`
}

// Normalize decodes one raw feed payload into the canonical NewsEvent.
//
// Field resolution: en wins over title, url over link; source falls back to
// the type field when absent. The time field is epoch milliseconds from the
// origin feed and is required; the event timestamp is never the local
// receive time.
func Normalize(data []byte) (models.NewsEvent, error) {
	var p rawNewsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.NewsEvent{}, fmt.Errorf("decode news payload: %w", err)
	}
	if p.Time == nil {
		return models.NewsEvent{}, ErrMissingTime
	}

	title := p.En
	if title == "" {
		title = p.Title
	}
	link := p.URL
	if link == "" {
		link = p.Link
	}
	body := p.Body
	source := p.Source
	if source == "" {
		source = p.Type
	}

	coin := p.Coin
	if coin == "" && len(p.Actions) > 0 {
		last := p.Actions[len(p.Actions)-1].Title
		coin = strings.SplitN(last, "/", 2)[0]
	}

	if p.Type == "direct" {
		source = "tree-twitter"
	}

	if strings.EqualFold(source, "blogs") {
		parts := strings.SplitN(title, ":", 2)
		title = strings.TrimSpace(parts[0])
		body = ""
		if len(parts) == 2 {
			body = strings.TrimSpace(parts[1])
		}
	}

	return models.NewsEvent{
		Title:      title,
		Body:       body,
		Link:       link,
		Source:     source,
		OccurredAt: time.UnixMilli(*p.Time),
		Coin:       coin,
		ExternalID: p.ID,
		Actions:    p.Actions,
	}, nil
}
