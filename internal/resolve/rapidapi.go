package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"thirdcoast.systems/reelgrab/internal/dispatch"
	"thirdcoast.systems/reelgrab/internal/rapidapi"
)

// RapidAPI resolves posts through the Reels Downloader API.
type RapidAPI struct {
	client *rapidapi.Client
}

func NewRapidAPI(client *rapidapi.Client) *RapidAPI {
	return &RapidAPI{client: client}
}

func (r *RapidAPI) Resolve(ctx context.Context, locator string) (dispatch.Resolution, error) {
	m, err := r.client.VideoURL(ctx, locator)
	if err != nil {
		var se *rapidapi.StatusError
		switch {
		case errors.Is(err, rapidapi.ErrNoVideo):
			return dispatch.Resolution{}, fmt.Errorf("%w: %v", dispatch.ErrNotResolvable, err)
		case errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusBadRequest):
			return dispatch.Resolution{}, fmt.Errorf("%w: %v", dispatch.ErrNotResolvable, err)
		}
		return dispatch.Resolution{}, err
	}

	ext := m.Extension
	if ext == "" {
		ext = "mp4"
	}
	return dispatch.Resolution{DirectURL: m.URL, Ext: ext}, nil
}
