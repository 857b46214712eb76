// Package inventory holds the grouped hardware inventory: an in-memory
// collection keyed by name|brand|model, mirrored wholesale to a key-value
// store after every change.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hardware-inventory/internal/kvstore"
	"hardware-inventory/internal/models"
)

// DefaultKey is the key the whole inventory is stored under.
const DefaultKey = "hardware_inventory"

// Field names reported by ValidationError.
const (
	FieldName         = "name"
	FieldBrand        = "brand"
	FieldModel        = "model"
	FieldSerialNumber = "serialNumber"
	FieldMonthlyCost  = "monthlyCost"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger (default zap.NewNop()).
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithKey overrides the storage key (default DefaultKey).
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithClock overrides the clock used to mint item ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithPersistTimeout bounds every background storage write (default 5s).
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) { s.persistTimeout = d }
}

// Store owns the inventory state. Mutations are serialized; each successful
// one hands a snapshot to a background writer and notifies subscribers.
type Store struct {
	mu      sync.RWMutex
	groups  models.Groups
	index   map[string]string // item id -> group key
	serials map[string]string // serial number -> item id
	lastID  int64
	closed  bool

	subMu   sync.Mutex
	subs    map[int]func(models.Groups)
	nextSub int

	kv             kvstore.Store
	key            string
	now            func() time.Time
	logger         *zap.Logger
	metrics        *Metrics
	persistTimeout time.Duration
	persist        *persister
	ownsKV         bool // set by Open; Close then closes kv too
}

// New creates an empty store mirrored to kv. Call Load before use and Close when done.
func New(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		groups:         make(models.Groups),
		index:          make(map[string]string),
		serials:        make(map[string]string),
		subs:           make(map[int]func(models.Groups)),
		kv:             kv,
		key:            DefaultKey,
		now:            time.Now,
		logger:         zap.NewNop(),
		persistTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.persist = newPersister(kv, s.key, s.persistTimeout, s.logger, s.metrics)
	return s
}

// Load replaces the in-memory state with the persisted blob. An absent key
// yields an empty inventory.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		s.logger.Info("no persisted inventory, starting empty", zap.String("key", s.key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	var groups models.Groups
	if err := json.Unmarshal(data, &groups); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	s.mu.Lock()
	s.replaceLocked(groups)
	snapshot := s.groups.Clone()
	s.mu.Unlock()

	s.logger.Info("inventory loaded",
		zap.Int("groups", len(snapshot)),
		zap.Int("items", snapshot.ItemCount()))
	s.notify(snapshot)
	return nil
}

func (s *Store) replaceLocked(groups models.Groups) {
	s.groups = make(models.Groups, len(groups))
	s.index = make(map[string]string)
	s.serials = make(map[string]string)
	for key, items := range groups {
		if len(items) == 0 {
			continue
		}
		for _, it := range items {
			if other, dup := s.serials[it.SerialNumber]; dup {
				s.logger.Warn("duplicate serial number in persisted inventory",
					zap.String("serial", it.SerialNumber),
					zap.String("id", it.ID),
					zap.String("other_id", other))
			}
			s.serials[it.SerialNumber] = it.ID
			s.index[it.ID] = key
			if n, err := strconv.ParseInt(it.ID, 10, 64); err == nil && n > s.lastID {
				s.lastID = n
			}
		}
		s.groups[key] = append([]models.HardwareItem(nil), items...)
	}
	s.metrics.observeSize(len(s.groups), len(s.index))
}

// Save adds the item when item.ID is empty and updates it otherwise.
//
// Required fields are trimmed and must be non-blank, and the serial number
// must not belong to another item; violations return a *ValidationError and
// leave the store untouched. When the destination group already has items
// its monthly cost overrides the submitted one. An update whose name, brand
// or model changed moves the item to the new group, pruning the old one if
// it became empty.
func (s *Store) Save(in models.HardwareItem) (models.HardwareItem, error) {
	item := normalize(in)
	if err := validate(item); err != nil {
		s.rejected(err)
		return models.HardwareItem{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.HardwareItem{}, ErrClosed
	}

	oldKey := ""
	if item.ID != "" {
		k, ok := s.index[item.ID]
		if !ok {
			s.mu.Unlock()
			return models.HardwareItem{}, ErrNotFound
		}
		oldKey = k
	}
	if owner, ok := s.serials[item.SerialNumber]; ok && owner != item.ID {
		s.mu.Unlock()
		err := &ValidationError{Field: FieldSerialNumber, Err: ErrDuplicateSerial}
		s.rejected(err)
		return models.HardwareItem{}, err
	}

	newKey := item.GroupKey()
	if cost, ok := s.groups.Cost(newKey); ok {
		item.MonthlyCost = cost
	}

	created := item.ID == ""
	if created {
		item.ID = s.nextIDLocked()
	} else {
		prev := s.findLocked(oldKey, item.ID)
		if prev.SerialNumber != item.SerialNumber {
			s.releaseSerialLocked(prev.SerialNumber, item.ID)
		}
		if oldKey != newKey {
			s.removeLocked(oldKey, item.ID)
		}
	}
	s.upsertLocked(newKey, item)
	s.serials[item.SerialNumber] = item.ID
	s.index[item.ID] = newKey

	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.logger.Info("item saved",
		zap.String("id", item.ID),
		zap.String("group", newKey),
		zap.Bool("created", created),
		zap.Bool("moved", oldKey != "" && oldKey != newKey))
	s.notify(snapshot)
	return item, nil
}

// Delete removes the item with id, pruning its group if it became empty.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	key, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	prev := s.findLocked(key, id)
	s.removeLocked(key, id)
	delete(s.index, id)
	s.releaseSerialLocked(prev.SerialNumber, id)

	snapshot := s.commitLocked()
	s.mu.Unlock()

	s.logger.Info("item deleted", zap.String("id", id), zap.String("group", key))
	s.notify(snapshot)
	return nil
}

// CostLock reports whether the (name, brand, model) triple names an existing
// non-empty group and, if so, that group's monthly cost. Forms call it whenever
// one of the three fields changes and make the cost read-only while locked.
func (s *Store) CostLock(name, brand, model string) (decimal.Decimal, bool) {
	key := models.GroupKey(strings.TrimSpace(name), strings.TrimSpace(brand), strings.TrimSpace(model))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups.Cost(key)
}

// Get returns the item with id.
func (s *Store) Get(id string) (models.HardwareItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.index[id]
	if !ok {
		return models.HardwareItem{}, false
	}
	return s.findLocked(key, id), true
}

// FindBySerial returns the item holding serial, if any.
func (s *Store) FindBySerial(serial string) (models.HardwareItem, bool) {
	serial = strings.TrimSpace(serial)
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.serials[serial]
	if !ok {
		return models.HardwareItem{}, false
	}
	return s.findLocked(s.index[id], id), true
}

// Validate runs the checks Save would run without changing anything.
func (s *Store) Validate(in models.HardwareItem) error {
	item := normalize(in)
	if err := validate(item); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if item.ID != "" {
		if _, ok := s.index[item.ID]; !ok {
			return ErrNotFound
		}
	}
	if owner, ok := s.serials[item.SerialNumber]; ok && owner != item.ID {
		return &ValidationError{Field: FieldSerialNumber, Err: ErrDuplicateSerial}
	}
	return nil
}

// Groups returns a deep copy of the whole inventory.
func (s *Store) Groups() models.Groups {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups.Clone()
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Subscribe registers fn to receive a snapshot after every successful
// mutation or load. fn runs on the mutating goroutine and must not call
// back into mutating methods. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(models.Groups)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Flush waits for the pending background write, if any.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist.flush(ctx)
}

// Close flushes the last snapshot and stops the background writer. Later
// mutations return ErrClosed. The key-value store is closed only when the
// store was created by Open.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	closeKV := s.ownsKV
	s.ownsKV = false
	s.mu.Unlock()

	err := s.persist.stop(ctx)
	if closeKV {
		err = errors.Join(err, s.kv.Close())
	}
	return err
}

func (s *Store) notify(snapshot models.Groups) {
	s.subMu.Lock()
	fns := make([]func(models.Groups), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snapshot.Clone())
	}
}

// commitLocked hands the current state to the persister and returns a snapshot.
func (s *Store) commitLocked() models.Groups {
	s.metrics.observeSize(len(s.groups), len(s.index))
	data, err := json.Marshal(s.groups)
	if err != nil {
		s.metrics.persistFailed()
		s.logger.Error("encode inventory failed", zap.Error(err))
	} else {
		s.persist.submit(data)
	}
	return s.groups.Clone()
}

func (s *Store) rejected(err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		s.metrics.validationFailed(ve.Field)
		s.logger.Debug("save rejected", zap.String("field", ve.Field), zap.Error(ve.Err))
	}
}

func (s *Store) findLocked(key, id string) models.HardwareItem {
	for _, it := range s.groups[key] {
		if it.ID == id {
			return it
		}
	}
	return models.HardwareItem{}
}

func (s *Store) removeLocked(key, id string) {
	items := s.groups[key]
	for i, it := range items {
		if it.ID == id {
			items = append(items[:i:i], items[i+1:]...)
			break
		}
	}
	if len(items) == 0 {
		delete(s.groups, key)
		return
	}
	s.groups[key] = items
}

func (s *Store) upsertLocked(key string, item models.HardwareItem) {
	items := s.groups[key]
	for i, it := range items {
		if it.ID == item.ID {
			items[i] = item
			return
		}
	}
	s.groups[key] = append(items, item)
}

// releaseSerialLocked drops id's claim on serial. A loaded state may hold
// duplicate serials, in which case the index points at one holder only; when
// that holder goes, another remaining holder takes the entry over.
func (s *Store) releaseSerialLocked(serial, id string) {
	if s.serials[serial] != id {
		return
	}
	delete(s.serials, serial)
	for _, items := range s.groups {
		for _, it := range items {
			if it.SerialNumber == serial && it.ID != id {
				s.serials[serial] = it.ID
				return
			}
		}
	}
}

// nextIDLocked mints the creation timestamp in Unix milliseconds, bumped
// past the last issued id so ids stay unique.
func (s *Store) nextIDLocked() string {
	n := s.now().UnixMilli()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	for {
		id := strconv.FormatInt(n, 10)
		if _, taken := s.index[id]; !taken {
			s.lastID = n
			return id
		}
		n++
	}
}

func normalize(it models.HardwareItem) models.HardwareItem {
	it.ID = strings.TrimSpace(it.ID)
	it.Name = strings.TrimSpace(it.Name)
	it.Brand = strings.TrimSpace(it.Brand)
	it.Model = strings.TrimSpace(it.Model)
	it.SerialNumber = strings.TrimSpace(it.SerialNumber)
	it.Details = strings.TrimSpace(it.Details)
	return it
}

func validate(it models.HardwareItem) error {
	required := []struct {
		field, value string
	}{
		{FieldName, it.Name},
		{FieldBrand, it.Brand},
		{FieldModel, it.Model},
		{FieldSerialNumber, it.SerialNumber},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Err: ErrMissingField}
		}
	}
	// The group key joins these three, so the separator would let two
	// different triples share a group.
	for _, r := range required[:3] {
		if strings.Contains(r.value, models.GroupKeySeparator) {
			return &ValidationError{Field: r.field, Err: ErrReservedCharacter}
		}
	}
	if it.MonthlyCost.IsNegative() {
		return &ValidationError{Field: FieldMonthlyCost, Err: ErrInvalidCost}
	}
	return nil
}
