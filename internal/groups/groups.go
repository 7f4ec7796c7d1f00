package groups

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/validate"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

// Group is the canonical artist/ensemble representation.
type Group struct {
	ID           int
	Name         string
	GenreID      int
	GenreName    string
	ImageURL     string
	TotalRecords int
}

// groupWire tolerates both PascalCase and camelCase field names; the
// PascalCase spelling wins when both are present.
type groupWire struct {
	IdGroup        *int   `json:"IdGroup"`
	IdGroupLower   *int   `json:"idGroup"`
	NameGroup      string `json:"NameGroup"`
	NameGroupLower string `json:"nameGroup"`
	MusicGenreId   *int   `json:"MusicGenreId"`
	MusicGenreIdLo *int   `json:"musicGenreId"`
	NameMusicGenre string `json:"NameMusicGenre"`
	NameGenreLower string `json:"nameMusicGenre"`
	ImageGroup     string `json:"ImageGroup"`
	ImageLower     string `json:"imageGroup"`
	TotalRecords   *int   `json:"TotalRecords"`
	TotalLower     *int   `json:"totalRecords"`
}

func (w groupWire) toGroup() Group {
	return Group{
		ID:           coalesceInt(w.IdGroup, w.IdGroupLower),
		Name:         coalesceString(w.NameGroup, w.NameGroupLower),
		GenreID:      coalesceInt(w.MusicGenreId, w.MusicGenreIdLo),
		GenreName:    coalesceString(w.NameMusicGenre, w.NameGenreLower),
		ImageURL:     strings.TrimPrefix(coalesceString(w.ImageGroup, w.ImageLower), "/"),
		TotalRecords: coalesceInt(w.TotalRecords, w.TotalLower),
	}
}

func coalesceInt(canonical, variant *int) int {
	if canonical != nil {
		return *canonical
	}
	if variant != nil {
		return *variant
	}
	return 0
}

func coalesceString(canonical, variant string) string {
	if canonical != "" {
		return canonical
	}
	return variant
}

// Client reads and administers artist groups.
type Client struct {
	api    *api.Client
	logger *logger.Logger
}

func NewClient(apiClient *api.Client, logg *logger.Logger) (*Client, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("api client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{api: apiClient, logger: logg}, nil
}

// List fetches every group, tolerating all known collection envelopes.
func (c *Client) List(ctx context.Context) ([]Group, error) {
	raw, err := c.api.Get(ctx, "groups")
	if err != nil {
		return nil, err
	}
	wires, err := api.DecodeCollectionInto[groupWire](raw)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(wires))
	for _, w := range wires {
		groups = append(groups, w.toGroup())
	}
	return groups, nil
}

// Names returns the id-to-name index used for record enrichment.
func (c *Client) Names(ctx context.Context) (map[int]string, error) {
	groups, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(groups))
	for _, g := range groups {
		if g.ID != 0 {
			names[g.ID] = g.Name
		}
	}
	return names, nil
}

// GetName resolves one group's name, tolerating a direct object, a
// {"data":...} wrapper, or a "$values" wrapper around the group payload.
// An unrecognized shape yields an empty name, not an error.
func (c *Client) GetName(ctx context.Context, groupID int) (string, error) {
	raw, err := c.api.Get(ctx, fmt.Sprintf("groups/%d", groupID))
	if err != nil {
		return "", err
	}

	var direct groupWire
	if err := json.Unmarshal(raw, &direct); err == nil {
		if name := coalesceString(direct.NameGroup, direct.NameGroupLower); name != "" {
			return name, nil
		}
	}

	items, err := api.DecodeCollection(raw)
	if err != nil || len(items) == 0 {
		c.logger.Warn(c.logger.WithField(ctx, "group_id", groupID), "group name not found in response")
		return "", nil
	}
	var wire groupWire
	if err := json.Unmarshal(items[0], &wire); err != nil {
		return "", nil
	}
	return coalesceString(wire.NameGroup, wire.NameGroupLower), nil
}

// GroupInput is the admin create/update payload.
type GroupInput struct {
	ID      int    `json:"idGroup"`
	Name    string `json:"nameGroup" validate:"required"`
	GenreID int    `json:"musicGenreId" validate:"required"`
	Photo   *api.Upload
}

// Add creates a group via multipart form data, attaching the photo when
// one is provided.
func (c *Client) Add(ctx context.Context, input GroupInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	fields := []api.FormField{
		{Name: "NameGroup", Value: input.Name},
		{Name: "MusicGenreId", Value: strconv.Itoa(input.GenreID)},
	}
	_, err := c.api.PostMultipart(ctx, "groups", fields, input.Photo)
	return err
}

// Update rewrites a group in place.
func (c *Client) Update(ctx context.Context, input GroupInput) error {
	if input.ID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	if err := validate.Struct(input); err != nil {
		return err
	}
	fields := []api.FormField{
		{Name: "IdGroup", Value: strconv.Itoa(input.ID)},
		{Name: "NameGroup", Value: input.Name},
		{Name: "MusicGenreId", Value: strconv.Itoa(input.GenreID)},
	}
	_, err := c.api.PutMultipart(ctx, fmt.Sprintf("groups/%d", input.ID), fields, input.Photo)
	return err
}

func (c *Client) Delete(ctx context.Context, groupID int) error {
	_, err := c.api.Delete(ctx, fmt.Sprintf("groups/%d", groupID))
	return err
}
