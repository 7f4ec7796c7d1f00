package genres

import (
	"context"
	"fmt"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/validate"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

// Genre is a music genre with the count of groups filed under it.
type Genre struct {
	ID          int
	Name        string
	TotalGroups int
}

type genreWire struct {
	IdMusicGenre   *int   `json:"IdMusicGenre"`
	IdLower        *int   `json:"idMusicGenre"`
	NameMusicGenre string `json:"NameMusicGenre"`
	NameLower      string `json:"nameMusicGenre"`
	TotalGroups    *int   `json:"TotalGroups"`
	TotalLower     *int   `json:"totalGroups"`
}

func (w genreWire) toGenre() Genre {
	g := Genre{
		Name: w.NameMusicGenre,
	}
	if g.Name == "" {
		g.Name = w.NameLower
	}
	if w.IdMusicGenre != nil {
		g.ID = *w.IdMusicGenre
	} else if w.IdLower != nil {
		g.ID = *w.IdLower
	}
	if w.TotalGroups != nil {
		g.TotalGroups = *w.TotalGroups
	} else if w.TotalLower != nil {
		g.TotalGroups = *w.TotalLower
	}
	return g
}

// Client reads and administers music genres.
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

// List fetches every genre, tolerating all known collection envelopes.
func (c *Client) List(ctx context.Context) ([]Genre, error) {
	raw, err := c.api.Get(ctx, "music-genres")
	if err != nil {
		return nil, err
	}
	wires, err := api.DecodeCollectionInto[genreWire](raw)
	if err != nil {
		return nil, err
	}
	genres := make([]Genre, 0, len(wires))
	for _, w := range wires {
		genres = append(genres, w.toGenre())
	}
	return genres, nil
}

// GenreInput is the admin create/update payload. Requests go out in
// camelCase, matching what the write endpoints accept.
type GenreInput struct {
	ID   int    `json:"idMusicGenre"`
	Name string `json:"nameMusicGenre" validate:"required"`
}

type genreRequest struct {
	ID          int    `json:"idMusicGenre,omitempty"`
	Name        string `json:"nameMusicGenre"`
	TotalGroups int    `json:"totalGroups"`
}

// Add creates a genre.
func (c *Client) Add(ctx context.Context, input GenreInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	return c.api.PostJSON(ctx, "music-genres", genreRequest{Name: input.Name}, nil)
}

// Update renames a genre.
func (c *Client) Update(ctx context.Context, input GenreInput) error {
	if input.ID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "genre id is required")
	}
	if err := validate.Struct(input); err != nil {
		return err
	}
	body := genreRequest{ID: input.ID, Name: input.Name}
	return c.api.PutJSON(ctx, fmt.Sprintf("music-genres/%d", input.ID), body, nil)
}

// Delete removes a genre.
func (c *Client) Delete(ctx context.Context, genreID int) error {
	_, err := c.api.Delete(ctx, fmt.Sprintf("music-genres/%d", genreID))
	return err
}
