package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/stock"
	"github.com/recordshop/storefront/internal/validate"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

// groupNames is the slice of the groups client the directory needs for
// record enrichment.
type groupNames interface {
	Names(ctx context.Context) (map[int]string, error)
}

// Client is the record directory: it fetches catalog records, normalizes
// the heterogeneous response shapes, and pushes every authoritative stock
// figure it sees into the broadcast channel.
type Client struct {
	api       *api.Client
	groups    groupNames
	broadcast *stock.Broadcast
	logger    *logger.Logger
}

func NewClient(apiClient *api.Client, groups groupNames, broadcast *stock.Broadcast, logg *logger.Logger) (*Client, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("api client required")
	}
	if broadcast == nil {
		return nil, fmt.Errorf("stock broadcast required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{api: apiClient, groups: groups, broadcast: broadcast, logger: logg}, nil
}

// ListAll fetches the whole catalog. Group names are resolved best-effort:
// a failed or partial group lookup leaves the name empty instead of
// failing the fetch.
func (c *Client) ListAll(ctx context.Context) ([]Record, error) {
	raw, err := c.api.Get(ctx, "records")
	if err != nil {
		return nil, err
	}
	wires, err := api.DecodeCollectionInto[recordWire](raw)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(wires))
	for _, w := range wires {
		recs = append(recs, w.toRecord())
	}

	c.enrichGroupNames(ctx, recs)
	for _, rec := range recs {
		c.broadcast.Notify(rec.ID, rec.Stock)
	}
	return recs, nil
}

func (c *Client) enrichGroupNames(ctx context.Context, recs []Record) {
	if c.groups == nil {
		return
	}
	names, err := c.groups.Names(ctx)
	if err != nil {
		c.logger.Warn(ctx, "group lookup failed, leaving group names empty")
		return
	}
	for i := range recs {
		if recs[i].GroupName == "" {
			recs[i].GroupName = names[recs[i].GroupID]
		}
	}
}

// groupDetailWire is the groups/{id} payload carrying the group's records.
type groupDetailWire struct {
	IdGroup   *int            `json:"IdGroup"`
	IdLower   *int            `json:"idGroup"`
	NameGroup string          `json:"NameGroup"`
	NameLower string          `json:"nameGroup"`
	Records   json.RawMessage `json:"Records"`
	RecordsLo json.RawMessage `json:"records"`
}

// ListByGroup fetches one group's records from the group-detail endpoint.
// Responses without a data payload yield an empty list.
func (c *Client) ListByGroup(ctx context.Context, groupID int) ([]Record, error) {
	raw, err := c.api.Get(ctx, fmt.Sprintf("groups/%d", groupID))
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	payload := raw
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		payload = envelope.Data
	}

	var detail groupDetailWire
	if err := json.Unmarshal(payload, &detail); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode group detail")
	}

	recordsRaw := detail.Records
	if recordsRaw == nil {
		recordsRaw = detail.RecordsLo
	}
	if recordsRaw == nil {
		c.logger.Warn(c.logger.WithField(ctx, "group_id", groupID), "group detail carries no records")
		return nil, nil
	}

	wires, err := api.DecodeCollectionInto[recordWire](recordsRaw)
	if err != nil {
		return nil, err
	}

	groupName := stringOr(detail.NameGroup, detail.NameLower)
	recs := make([]Record, 0, len(wires))
	for _, w := range wires {
		rec := w.toRecord()
		if rec.GroupID == 0 {
			rec.GroupID = intOr(detail.IdGroup, detail.IdLower)
		}
		if rec.GroupName == "" {
			rec.GroupName = groupName
		}
		recs = append(recs, rec)
	}

	for _, rec := range recs {
		c.broadcast.Notify(rec.ID, rec.Stock)
	}
	return recs, nil
}

// GetByID fetches one record, tolerating a direct object or a {"data":...}
// wrapper around it.
func (c *Client) GetByID(ctx context.Context, recordID int) (*Record, error) {
	raw, err := c.api.Get(ctx, fmt.Sprintf("records/%d", recordID))
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	payload := raw
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		// data may itself wrap the record, or be the loose stock carrier
		// that rides along a full record body.
		var probe recordWire
		if err := json.Unmarshal(envelope.Data, &probe); err == nil && intOr(probe.IdRecord, probe.IdLower) != 0 {
			payload = envelope.Data
		}
	}

	var wire recordWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode record")
	}
	rec := wire.toRecord()
	if rec.ID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeMalformed, "record payload missing id")
	}
	return &rec, nil
}

// AdjustStock applies a relative stock change (admin operation) and
// broadcasts the server-confirmed level.
func (c *Client) AdjustStock(ctx context.Context, recordID, delta int) (int, error) {
	var resp struct {
		NewStock *int `json:"newStock"`
		Pascal   *int `json:"NewStock"`
	}
	path := fmt.Sprintf("records/%d/stock/%d", recordID, delta)
	if err := c.api.PutJSON(ctx, path, nil, &resp); err != nil {
		return 0, err
	}

	confirmed := resp.NewStock
	if confirmed == nil {
		confirmed = resp.Pascal
	}
	if confirmed == nil || *confirmed < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeMalformed, "server returned an invalid stock value")
	}

	c.broadcast.Notify(recordID, *confirmed)
	return *confirmed, nil
}

// RecordInput is the admin create/update payload. The photo travels as a
// multipart attachment; PhotoName is always sent, empty meaning "clear".
type RecordInput struct {
	ID           int    `json:"idRecord"`
	Title        string `json:"titleRecord" validate:"required"`
	Year         *int   `json:"yearOfPublication"`
	Price        string `json:"price"`
	Stock        int    `json:"stock" validate:"gte=0"`
	Discontinued bool   `json:"discontinued"`
	GroupID      int    `json:"groupId" validate:"required"`
	PhotoName    string `json:"photoName"`
	Photo        *api.Upload
}

func (in RecordInput) formFields() []api.FormField {
	year := ""
	if in.Year != nil {
		year = strconv.Itoa(*in.Year)
	}
	fields := []api.FormField{
		{Name: "TitleRecord", Value: in.Title},
		{Name: "YearOfPublication", Value: year},
		{Name: "PhotoName", Value: in.PhotoName},
		{Name: "Price", Value: in.Price},
		{Name: "Stock", Value: strconv.Itoa(in.Stock)},
		{Name: "Discontinued", Value: strconv.FormatBool(in.Discontinued)},
	}
	if in.GroupID != 0 {
		fields = append(fields, api.FormField{Name: "GroupId", Value: strconv.Itoa(in.GroupID)})
	}
	return fields
}

// Add creates a record (admin operation).
func (c *Client) Add(ctx context.Context, input RecordInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	_, err := c.api.PostMultipart(ctx, "records", input.formFields(), input.Photo)
	return err
}

// Update rewrites a record (admin operation).
func (c *Client) Update(ctx context.Context, input RecordInput) error {
	if input.ID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	if err := validate.Struct(input); err != nil {
		return err
	}
	fields := append([]api.FormField{{Name: "IdRecord", Value: strconv.Itoa(input.ID)}}, input.formFields()...)
	_, err := c.api.PutMultipart(ctx, fmt.Sprintf("records/%d", input.ID), fields, input.Photo)
	return err
}

// Delete removes a record (admin operation).
func (c *Client) Delete(ctx context.Context, recordID int) error {
	_, err := c.api.Delete(ctx, fmt.Sprintf("records/%d", recordID))
	return err
}
