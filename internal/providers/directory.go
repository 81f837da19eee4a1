// Package providers keeps the directory of guides, agencies and transport
// companies that operations assigns to service lines.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Kind classifies a provider.
type Kind string

const (
	KindGuide     Kind = "GUIDE"
	KindAgency    Kind = "AGENCY"
	KindTransport Kind = "TRANSPORT"
)

// Kinds lists the accepted provider kinds in display order.
func Kinds() []Kind {
	return []Kind{KindGuide, KindAgency, KindTransport}
}

// Provider is one entry of the directory.
type Provider struct {
	ID        int64
	Name      string
	Kind      Kind
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Input is the payload for creating a provider.
type Input struct {
	Name  string `validate:"required,min=2,max=120"`
	Kind  string `validate:"required,oneof=GUIDE AGENCY TRANSPORT"`
	Phone string `validate:"omitempty,max=40"`
	Email string `validate:"omitempty,email"`
}

// Directory reads and writes providers through the store.
type Directory struct {
	store store.Store
	now   func() time.Time
}

// NewDirectory constructs a Directory.
func NewDirectory(s store.Store) *Directory {
	return &Directory{store: s, now: time.Now}
}

// List returns providers ordered by name, optionally filtered by kind.
func (d *Directory) List(ctx context.Context, kind Kind) ([]Provider, error) {
	filter := store.All()
	if kind != "" {
		filter = store.Where(store.Eq("kind", string(kind)))
	}
	recs, err := d.store.Query(ctx, store.Providers, filter.OrderBy("name"))
	if err != nil {
		return nil, err
	}
	out := make([]Provider, len(recs))
	for i, rec := range recs {
		out[i] = fromRecord(rec)
	}
	return out, nil
}

// Create inserts a provider. Input is expected to be validated by the caller.
func (d *Directory) Create(ctx context.Context, in Input) (Provider, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Provider{}, fmt.Errorf("%w: provider name required", shared.ErrValidation)
	}
	rec, err := d.store.Insert(ctx, store.Providers, store.Record{
		"name":       name,
		"kind":       strings.ToUpper(strings.TrimSpace(in.Kind)),
		"phone":      strings.TrimSpace(in.Phone),
		"email":      strings.TrimSpace(in.Email),
		"created_at": d.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Provider{}, fmt.Errorf("%w: provider %q already exists", shared.ErrValidation, name)
		}
		return Provider{}, err
	}
	return fromRecord(rec), nil
}

// likeEscaper quotes LIKE metacharacters so typed names match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Resolve finds the provider whose name contains name, ignoring case. When
// several match, the first in name order wins.
func (d *Directory) Resolve(ctx context.Context, name string) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Provider{}, fmt.Errorf("%w: provider name required", shared.ErrValidation)
	}
	pattern := "%" + likeEscaper.Replace(name) + "%"
	recs, err := d.store.Query(ctx, store.Providers, store.Where(store.ILike("name", pattern)).OrderBy("name").Limit(1))
	if err != nil {
		return Provider{}, err
	}
	if len(recs) == 0 {
		return Provider{}, fmt.Errorf("%w: no provider matches %q", shared.ErrNotFound, name)
	}
	return fromRecord(recs[0]), nil
}

func fromRecord(rec store.Record) Provider {
	return Provider{
		ID:        rec.Int64("id"),
		Name:      rec.String("name"),
		Kind:      Kind(rec.String("kind")),
		Phone:     rec.String("phone"),
		Email:     rec.String("email"),
		CreatedAt: rec.Time("created_at"),
	}
}
