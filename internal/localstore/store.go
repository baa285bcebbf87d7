// Package localstore persists client-side checkout state that must survive a
// reload: the anonymous guest cart, a mirror of the authenticated cart, and
// the order-in-progress snapshot written just before checkout completion.
// Records are gzip-compressed JSON files written atomically.
package localstore

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/pricing"
)

const (
	guestCartFile       = "guest_cart.json.gz"
	cartMirrorFile      = "cart_mirror.json.gz"
	orderInProgressFile = "order_in_progress.json.gz"
)

// storedLineItem is the serialized shape of one cart line.
type storedLineItem struct {
	ID                  string          `json:"id"`
	ProductRef          string          `json:"productRef"`
	Name                string          `json:"name"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	OriginalUnitPrice   decimal.Decimal `json:"originalUnitPrice"`
	Quantity            int             `json:"quantity"`
	AvailableStock      int             `json:"availableStock"`
	LineDiscountPercent decimal.Decimal `json:"lineDiscountPercent"`
}

func toStored(items []cart.LineItem) []storedLineItem {
	out := make([]storedLineItem, len(items))
	for i, li := range items {
		out[i] = storedLineItem{
			ID:                  li.ID,
			ProductRef:          li.ProductRef,
			Name:                li.Name,
			UnitPrice:           li.UnitPrice,
			OriginalUnitPrice:   li.OriginalUnitPrice,
			Quantity:            li.Quantity,
			AvailableStock:      li.AvailableStock,
			LineDiscountPercent: li.LineDiscountPercent,
		}
	}
	return out
}

func fromStored(items []storedLineItem) []cart.LineItem {
	out := make([]cart.LineItem, len(items))
	for i, si := range items {
		out[i] = cart.LineItem{
			ID:                  si.ID,
			ProductRef:          si.ProductRef,
			Name:                si.Name,
			UnitPrice:           si.UnitPrice,
			OriginalUnitPrice:   si.OriginalUnitPrice,
			Quantity:            si.Quantity,
			AvailableStock:      si.AvailableStock,
			LineDiscountPercent: si.LineDiscountPercent,
		}
	}
	return out
}

// OrderInProgress is the snapshot written just before navigating to checkout
// completion, so the completion view survives a reload.
type OrderInProgress struct {
	Items      []cart.LineItem
	CouponCode string
	Method     pricing.Method
	AddressID  string
	Totals     pricing.Totals
	SavedAt    time.Time
}

type orderInProgressRecord struct {
	Items      []storedLineItem `json:"items"`
	CouponCode string           `json:"couponCode,omitempty"`
	Method     string           `json:"method"`
	AddressID  string           `json:"addressId"`
	Totals     pricing.Totals   `json:"totals"`
	SavedAt    time.Time        `json:"savedAt"`
}

// Store reads and writes the persisted files under one directory.
type Store struct {
	dir string
}

// New creates the store directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create store dir")
	}
	return &Store{dir: dir}, nil
}

// SaveGuestCart persists the anonymous pre-login cart.
func (s *Store) SaveGuestCart(items []cart.LineItem) error {
	return s.writeFile(guestCartFile, toStored(items))
}

// LoadGuestCart returns the persisted guest cart, or nil when none exists.
func (s *Store) LoadGuestCart() ([]cart.LineItem, error) {
	var items []storedLineItem
	ok, err := s.readFile(guestCartFile, &items)
	if err != nil || !ok {
		return nil, err
	}
	return fromStored(items), nil
}

// ClearGuestCart removes the persisted guest cart. Missing file is a no-op.
func (s *Store) ClearGuestCart() error {
	err := os.Remove(filepath.Join(s.dir, guestCartFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clear guest cart")
	}
	return nil
}

// SaveCartMirror persists the authenticated-session cart mirror.
func (s *Store) SaveCartMirror(snap cart.Snapshot) error {
	return s.writeFile(cartMirrorFile, toStored(snap.Items()))
}

// LoadCartMirror returns the persisted cart mirror, or an empty snapshot.
func (s *Store) LoadCartMirror() (cart.Snapshot, error) {
	var items []storedLineItem
	ok, err := s.readFile(cartMirrorFile, &items)
	if err != nil || !ok {
		return cart.Snapshot{}, err
	}
	return cart.NewSnapshot(fromStored(items)), nil
}

// SaveOrderInProgress persists the pre-completion order snapshot.
func (s *Store) SaveOrderInProgress(o OrderInProgress) error {
	return s.writeFile(orderInProgressFile, orderInProgressRecord{
		Items:      toStored(o.Items),
		CouponCode: o.CouponCode,
		Method:     string(o.Method),
		AddressID:  o.AddressID,
		Totals:     o.Totals,
		SavedAt:    o.SavedAt,
	})
}

// LoadOrderInProgress returns the persisted order snapshot, or nil when none
// exists.
func (s *Store) LoadOrderInProgress() (*OrderInProgress, error) {
	var rec orderInProgressRecord
	ok, err := s.readFile(orderInProgressFile, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &OrderInProgress{
		Items:      fromStored(rec.Items),
		CouponCode: rec.CouponCode,
		Method:     pricing.Method(rec.Method),
		AddressID:  rec.AddressID,
		Totals:     rec.Totals,
		SavedAt:    rec.SavedAt,
	}, nil
}

// ClearOrderInProgress removes the order snapshot. Missing file is a no-op.
func (s *Store) ClearOrderInProgress() error {
	err := os.Remove(filepath.Join(s.dir, orderInProgressFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clear order in progress")
	}
	return nil
}

// writeFile serializes v to a gzip-compressed temp file, then renames it
// into place so readers never observe a partial write.
func (s *Store) writeFile(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", name)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	gz := pgzip.NewWriter(tmp)
	if _, err := gz.Write(payload); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := gz.Close(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "flush %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return errors.Wrapf(err, "commit %s", name)
	}
	return nil
}

// readFile decompresses and decodes one record. The second return value is
// false when the file does not exist.
func (s *Store) readFile(name string, v any) (bool, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "open %s", name)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return false, errors.Wrapf(err, "decompress %s", name)
	}
	defer func() { _ = gz.Close() }()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", name)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, errors.Wrapf(err, "decode %s", name)
	}
	return true, nil
}
