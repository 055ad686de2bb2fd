package rmf

import (
	"context"
	"encoding/json"
	"log"
)

// ListFleetsRaw returns the upstream fleet states that pass validation, each
// as the exact bytes the upstream sent.
func (c *Client) ListFleetsRaw(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := c.get(ctx, "/fleets", &items); err != nil {
		return nil, err
	}
	return filterValid(items, "fleet", func(b []byte) error {
		_, err := DecodeFleetState(b)
		return err
	}), nil
}

// ListFleets returns the decoded fleet states.
func (c *Client) ListFleets(ctx context.Context) ([]FleetState, error) {
	raw, err := c.ListFleetsRaw(ctx)
	if err != nil {
		return nil, err
	}
	fleets := make([]FleetState, 0, len(raw))
	for _, r := range raw {
		f, _ := DecodeFleetState(r)
		fleets = append(fleets, *f)
	}
	return fleets, nil
}

func filterValid(items []json.RawMessage, kind string, check func([]byte) error) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		if err := check(item); err != nil {
			log.Printf("rmf: dropping invalid %s at index %d: %v", kind, i, err)
			continue
		}
		out = append(out, item)
	}
	return out
}
