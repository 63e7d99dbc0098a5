package store

import (
	"context"
	"sync"
	"time"

	"cargomatch/internal/models"
	"cargomatch/internal/status"
)

// Memory is a mutex-guarded in-memory Store. It backs the service
// tests and local development; conditional writes run under one lock,
// which gives the same first-writer-wins behavior as the row locks of
// the Postgres implementation.
type Memory struct {
	mu sync.Mutex

	users      map[int64]*models.User
	emails     map[string]int64
	profiles   map[int64]*models.LSPProfile
	containers map[int64]*models.Container
	bookings   map[int64]*models.Booking
	shipments  map[int64]*models.Shipment
	shipEvents map[int64][]models.ShipmentEvent
	complaints map[int64]*models.Complaint
	processed  map[string]string
	audit      []models.AuditEntry

	nextID int64

	// Drift injected by tests to exercise the reconciler; the Postgres
	// schema can hold such rows, the domain model cannot.
	driftedFlags map[int64]status.AccountPair
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[int64]*models.User),
		emails:       make(map[string]int64),
		profiles:     make(map[int64]*models.LSPProfile),
		containers:   make(map[int64]*models.Container),
		bookings:     make(map[int64]*models.Booking),
		shipments:    make(map[int64]*models.Shipment),
		shipEvents:   make(map[int64][]models.ShipmentEvent),
		complaints:   make(map[int64]*models.Complaint),
		processed:    make(map[string]string),
		driftedFlags: make(map[int64]status.AccountPair),
	}
}

func (s *Memory) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Memory) Close() error { return nil }

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (s *Memory) CreateAccount(ctx context.Context, user *models.User, profile *models.LSPProfile) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return ErrDuplicate
	}
	now := time.Now()
	user.ID = s.id()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.ID] = &cp
	s.emails[user.Email] = user.ID

	if profile != nil {
		profile.ID = s.id()
		profile.UserID = user.ID
		profile.CreatedAt = now
		profile.UpdatedAt = now
		pp := *profile
		s.profiles[profile.ID] = &pp
	}
	return nil
}

func (s *Memory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Memory) GetLSPProfile(ctx context.Context, id int64) (*models.LSPProfile, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Memory) DecideLSP(ctx context.Context, profileID int64, from, to status.VerificationStatus, reason string) (*models.LSPProfile, *models.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if p.VerificationStatus != from {
		return nil, nil, ErrConflict
	}
	now := time.Now()
	p.VerificationStatus = to
	p.RejectionReason = reason
	p.UpdatedAt = now

	u := s.users[p.UserID]
	u.VerificationStatus = to
	u.UpdatedAt = now
	delete(s.driftedFlags, u.ID)

	pc, uc := *p, *u
	return &pc, &uc, nil
}

func (s *Memory) ListAccountPairs(ctx context.Context) ([]status.AccountPair, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var pairs []status.AccountPair
	for _, p := range s.profiles {
		u := s.users[p.UserID]
		if drift, ok := s.driftedFlags[u.ID]; ok {
			pairs = append(pairs, drift)
			continue
		}
		pairs = append(pairs, status.AccountPair{
			UserID:             u.ID,
			Role:               u.Role,
			IsActive:           u.Active(),
			IsVerified:         p.Verified(),
			VerificationStatus: p.VerificationStatus,
		})
	}
	return pairs, nil
}

func (s *Memory) RepairAccountPair(ctx context.Context, userID int64) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, p := range s.profiles {
		if p.UserID == userID {
			u.VerificationStatus = p.VerificationStatus
			u.UpdatedAt = time.Now()
			delete(s.driftedFlags, userID)
			return nil
		}
	}
	return ErrNotFound
}

// InjectDrift seeds a contradictory flag pair for a user, simulating
// rows written by pre-engine code paths.
func (s *Memory) InjectDrift(pair status.AccountPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driftedFlags[pair.UserID] = pair
}

func (s *Memory) CreateContainer(ctx context.Context, c *models.Container) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	c.ID = s.id()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	s.containers[c.ID] = &cp
	return nil
}

func (s *Memory) GetContainer(ctx context.Context, id int64) (*models.Container, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Memory) ListBookableContainers(ctx context.Context) ([]models.Container, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Container
	for _, c := range s.containers {
		if c.Bookable() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Memory) DecideContainer(ctx context.Context, id int64, from, to status.ContainerApproval) (*models.Container, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.ApprovalStatus != from {
		return nil, ErrConflict
	}
	c.ApprovalStatus = to
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (s *Memory) CreateBooking(ctx context.Context, containerID, traderID int64) (*models.Booking, *models.Container, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[containerID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !c.Bookable() {
		return nil, nil, ErrConflict
	}
	now := time.Now()
	c.Status = status.ContainerBooked
	c.UpdatedAt = now

	b := &models.Booking{
		ID:          s.id(),
		ContainerID: containerID,
		TraderID:    traderID,
		LSPID:       c.LSPID,
		Status:      status.BookingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.bookings[b.ID] = b

	bc, cc := *b, *c
	return &bc, &cc, nil
}

func (s *Memory) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Memory) ApproveBooking(ctx context.Context, bookingID int64) (*models.Booking, *models.Shipment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if b.Status != status.BookingPending {
		return nil, nil, ErrConflict
	}
	now := time.Now()
	b.Status = status.BookingApproved
	b.UpdatedAt = now

	sh := &models.Shipment{
		ID:        s.id(),
		BookingID: bookingID,
		Status:    status.ShipmentScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.shipments[sh.ID] = sh

	bc, sc := *b, *sh
	return &bc, &sc, nil
}

func (s *Memory) CancelBooking(ctx context.Context, bookingID int64, from status.BookingStatus) (*models.Booking, *models.Container, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if b.Status != from {
		return nil, nil, ErrConflict
	}
	if from == status.BookingApproved {
		for _, sh := range s.shipments {
			if sh.BookingID == bookingID {
				return nil, nil, ErrConflict
			}
		}
	}
	now := time.Now()
	b.Status = status.BookingCancelled
	b.UpdatedAt = now

	c := s.containers[b.ContainerID]
	c.Status = status.ContainerAvailable
	c.UpdatedAt = now

	bc, cc := *b, *c
	return &bc, &cc, nil
}

func (s *Memory) GetShipmentByBookingID(ctx context.Context, bookingID int64) (*models.Shipment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shipments {
		if sh.BookingID == bookingID {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *Memory) AdvanceShipment(ctx context.Context, id int64, from, to status.ShipmentStatus, actorID int64) (*models.Shipment, *models.Booking, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shipments[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if sh.Status != from {
		return nil, nil, ErrConflict
	}
	now := time.Now()
	sh.Status = to
	sh.UpdatedAt = now

	s.shipEvents[id] = append(s.shipEvents[id], models.ShipmentEvent{
		ID:         s.id(),
		ShipmentID: id,
		Kind:       models.ShipmentEventAdvanced,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		CreatedAt:  now,
	})

	b := s.bookings[sh.BookingID]
	c := s.containers[b.ContainerID]
	switch to {
	case status.ShipmentInTransit:
		c.Status = status.ContainerInTransit
		c.UpdatedAt = now
	case status.ShipmentDelivered:
		c.Status = status.ContainerDelivered
		c.UpdatedAt = now
	case status.ShipmentClosed:
		b.Status = status.BookingClosed
		b.UpdatedAt = now
	}

	sc, bc := *sh, *b
	return &sc, &bc, nil
}

func (s *Memory) AppendShipmentEvent(ctx context.Context, ev *models.ShipmentEvent) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shipments[ev.ShipmentID]; !ok {
		return ErrNotFound
	}
	ev.ID = s.id()
	ev.CreatedAt = time.Now()
	s.shipEvents[ev.ShipmentID] = append(s.shipEvents[ev.ShipmentID], *ev)
	return nil
}

func (s *Memory) ListShipmentEvents(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ShipmentEvent, len(s.shipEvents[shipmentID]))
	copy(out, s.shipEvents[shipmentID])
	return out, nil
}

func (s *Memory) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	c.ID = s.id()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	s.complaints[c.ID] = &cp
	return nil
}

func (s *Memory) GetComplaint(ctx context.Context, id int64) (*models.Complaint, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Memory) UpdateComplaint(ctx context.Context, id int64, from, to status.ComplaintStatus, resolution *string, resolvedAt *time.Time) (*models.Complaint, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Status != from {
		return nil, ErrConflict
	}
	c.Status = to
	if resolution != nil {
		r := *resolution
		c.Resolution = &r
	}
	if resolvedAt != nil {
		t := *resolvedAt
		c.ResolvedAt = &t
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (s *Memory) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *Memory) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[eventID] = eventType
	return nil
}

func (s *Memory) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.id()
	entry.CreatedAt = time.Now()
	s.audit = append(s.audit, *entry)
	return nil
}

// AuditEntries returns a copy of the audit trail.
func (s *Memory) AuditEntries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
