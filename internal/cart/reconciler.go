package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/recordshop/storefront/internal/records"
	"github.com/recordshop/storefront/internal/stock"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// mutationState tracks one optimistic mutation from issue to settlement.
type mutationState int

const (
	stateIdle mutationState = iota
	statePending
	stateConfirmed
	stateRolledBack
)

// snapshot is the pre-mutation view of one displayed record; a failed
// mutation restores it verbatim instead of reversing field by field.
type snapshot struct {
	amount int
	st     int
	inCart bool
}

type mutation struct {
	recordID int
	state    mutationState
	snap     snapshot
}

// mutator is the slice of the cart client the reconciler drives.
type mutator interface {
	Add(ctx context.Context, email string, recordID, amount int) (MutationResult, error)
	Remove(ctx context.Context, email string, recordID, amount int) (MutationResult, error)
	GetItems(ctx context.Context, email string) ([]Line, error)
}

// directory is the slice of the records client used for refresh and
// enrichment.
type directory interface {
	ListAll(ctx context.Context) ([]records.Record, error)
}

// Reconciler holds the locally displayed records and cart lines for one
// user, applies optimistic cart mutations, and converges the display on
// server-confirmed stock arriving over the broadcast channel.
//
// Mutations are serialized by a single in-flight guard: a second add or
// remove while one is pending is rejected outright, never queued.
type Reconciler struct {
	client mutator
	dir    directory
	email  string
	logger *logger.Logger

	alertFor time.Duration
	now      func() time.Time

	mu          sync.Mutex
	records     []records.Record
	lines       []Line
	inFlight    bool
	last        mutation
	alert       string
	alertUntil  time.Time
	unsubscribe func()
}

type ReconcilerOption func(*Reconciler)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// WithAlertDuration overrides how long a transient alert stays visible.
func WithAlertDuration(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) { r.alertFor = d }
}

func NewReconciler(client mutator, dir directory, broadcast *stock.Broadcast, email string, logg *logger.Logger, opts ...ReconcilerOption) (*Reconciler, error) {
	if client == nil {
		return nil, fmt.Errorf("cart client required")
	}
	if broadcast == nil {
		return nil, fmt.Errorf("stock broadcast required")
	}
	if email == "" {
		return nil, fmt.Errorf("user email required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	r := &Reconciler{
		client:   client,
		dir:      dir,
		email:    email,
		logger:   logg,
		alertFor: 5 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.unsubscribe = broadcast.Subscribe(r.onStock)
	return r, nil
}

// Close detaches the reconciler from the broadcast channel. Results of any
// still-running network call are applied but no further broadcasts arrive.
func (r *Reconciler) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// onStock overwrites the displayed stock on every matching record. The
// broadcast is the authoritative convergence point; it never triggers a
// rollback by itself.
func (r *Reconciler) onStock(u stock.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == u.RecordID {
			r.records[i].Stock = u.NewStock
		}
	}
}

// AddToCart optimistically puts one unit of the record into the cart.
// Rejected immediately when the record is out of stock or another mutation
// is pending. On server failure the pre-mutation snapshot is restored and
// a transient alert is raised.
func (r *Reconciler) AddToCart(ctx context.Context, recordID int) error {
	r.mu.Lock()
	idx := r.indexOf(recordID)
	if idx < 0 {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "record is not displayed")
	}
	if r.records[idx].Stock <= 0 {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "record is out of stock")
	}
	if r.inFlight {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "another cart operation is pending")
	}

	r.inFlight = true
	r.last = mutation{
		recordID: recordID,
		state:    statePending,
		snap: snapshot{
			amount: r.records[idx].Amount,
			st:     r.records[idx].Stock,
			inCart: r.records[idx].InCart,
		},
	}
	r.records[idx].Amount++
	r.records[idx].InCart = true
	r.mu.Unlock()

	result, err := r.client.Add(ctx, r.email, recordID, 1)
	return r.settle(ctx, recordID, result, err)
}

// RemoveRecord optimistically takes one unit of the record out of the
// cart. A record at amount zero is a no-op and issues no network call.
func (r *Reconciler) RemoveRecord(ctx context.Context, recordID int) error {
	r.mu.Lock()
	idx := r.indexOf(recordID)
	if idx < 0 || r.records[idx].Amount <= 0 {
		r.mu.Unlock()
		return nil
	}
	if r.inFlight {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "another cart operation is pending")
	}

	r.inFlight = true
	r.last = mutation{
		recordID: recordID,
		state:    statePending,
		snap: snapshot{
			amount: r.records[idx].Amount,
			st:     r.records[idx].Stock,
			inCart: r.records[idx].InCart,
		},
	}
	r.records[idx].Amount--
	if r.records[idx].Amount == 0 {
		r.records[idx].InCart = false
	}
	r.mu.Unlock()

	result, err := r.client.Remove(ctx, r.email, recordID, 1)
	return r.settle(ctx, recordID, result, err)
}

// settle resolves a pending mutation: confirm on server success, restore
// the snapshot on any failure.
func (r *Reconciler) settle(ctx context.Context, recordID int, result MutationResult, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false

	if err == nil && result.Success {
		r.last.state = stateConfirmed
		if result.UpdatedStock != nil {
			if idx := r.indexOf(recordID); idx >= 0 {
				r.records[idx].Stock = *result.UpdatedStock
			}
		}
		return nil
	}

	r.last.state = stateRolledBack
	if idx := r.indexOf(recordID); idx >= 0 {
		r.records[idx].Amount = r.last.snap.amount
		r.records[idx].Stock = r.last.snap.st
		r.records[idx].InCart = r.last.snap.inCart
	}

	message := result.Message
	if message == "" {
		message = "The operation could not be completed. Please try again."
	}
	r.raiseAlertLocked(message)

	if err != nil {
		r.logger.Error(r.logger.WithRecordID(ctx, recordID), "cart mutation failed", err)
		return err
	}
	r.logger.Warn(r.logger.WithRecordID(ctx, recordID), "cart mutation rejected by server")
	return pkgerrors.New(pkgerrors.CodeValidation, message)
}

// LoadRecords replaces the displayed record snapshot from the directory.
// Read failures degrade to an empty list so the view keeps rendering.
func (r *Reconciler) LoadRecords(ctx context.Context) error {
	if r.dir == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "record directory not configured")
	}
	recs, err := r.dir.ListAll(ctx)
	if err != nil {
		r.logger.Warn(ctx, "record refresh failed, clearing displayed records")
		recs = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = recs
	r.applyLinesLocked()
	return nil
}

// LoadCartDetails replaces the cart-line snapshot and re-derives the
// per-record InCart and Amount fields, enriching lines with directory
// titles and prices where the server left them blank.
func (r *Reconciler) LoadCartDetails(ctx context.Context) error {
	lines, err := r.client.GetItems(ctx, r.email)
	if err != nil {
		r.logger.Warn(r.logger.WithUserEmail(ctx, r.email), "cart refresh failed, clearing displayed lines")
		lines = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = lines
	for i := range r.lines {
		if idx := r.indexOf(r.lines[i].RecordID); idx >= 0 {
			if r.lines[i].Title == "" {
				r.lines[i].Title = r.records[idx].Title
			}
			if !r.lines[i].Price.IsPositive() && r.records[idx].Price.IsPositive() {
				r.lines[i].Price = r.records[idx].Price
			}
		}
	}
	r.applyLinesLocked()
	return nil
}

func (r *Reconciler) applyLinesLocked() {
	amounts := make(map[int]int, len(r.lines))
	for _, line := range r.lines {
		amounts[line.RecordID] += line.Amount
	}
	for i := range r.records {
		amount := amounts[r.records[i].ID]
		r.records[i].Amount = amount
		r.records[i].InCart = amount > 0
	}
}

func (r *Reconciler) indexOf(recordID int) int {
	for i := range r.records {
		if r.records[i].ID == recordID {
			return i
		}
	}
	return -1
}

// Records returns a copy of the displayed record snapshot.
func (r *Reconciler) Records() []records.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]records.Record, len(r.records))
	copy(out, r.records)
	return out
}

// Lines returns a copy of the displayed cart lines.
func (r *Reconciler) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Total sums price times amount over the displayed lines.
func (r *Reconciler) Total() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, line := range r.lines {
		total = total.Add(line.Total())
	}
	return total
}

// Alert returns the current transient message, or empty once the display
// window has passed.
func (r *Reconciler) Alert() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alert == "" || r.now().After(r.alertUntil) {
		r.alert = ""
		return ""
	}
	return r.alert
}

func (r *Reconciler) raiseAlertLocked(message string) {
	r.alert = message
	r.alertUntil = r.now().Add(r.alertFor)
}
