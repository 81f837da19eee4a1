package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

func TestDirectoryCreateAndList(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(store.NewMemory())

	_, err := d.Create(ctx, Input{Name: "Wayna Transport", Kind: "transport"})
	require.NoError(t, err)
	_, err = d.Create(ctx, Input{Name: "Alicia Condori", Kind: "GUIDE", Email: "alicia@guides.pe"})
	require.NoError(t, err)

	all, err := d.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Alicia Condori", all[0].Name)

	guides, err := d.List(ctx, KindGuide)
	require.NoError(t, err)
	require.Len(t, guides, 1)
	require.Equal(t, KindGuide, guides[0].Kind)
}

func TestDirectoryResolve(t *testing.T) {
	m := store.NewMemory()
	m.Seed(store.Providers,
		store.Record{"id": int64(1), "name": "Rosa Mamani", "kind": "GUIDE"},
		store.Record{"id": int64(2), "name": "Mamani Tours", "kind": "AGENCY"},
	)
	d := NewDirectory(m)

	p, err := d.Resolve(context.Background(), "MAMANI")
	require.NoError(t, err)
	require.Equal(t, "Mamani Tours", p.Name)

	_, err = d.Resolve(context.Background(), "Quispe")
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = d.Resolve(context.Background(), " ")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDirectoryResolveMatchesWildcardsLiterally(t *testing.T) {
	m := store.NewMemory()
	m.Seed(store.Providers,
		store.Record{"id": int64(1), "name": "Rosa Mamani", "kind": "GUIDE"},
		store.Record{"id": int64(2), "name": "100% Andes", "kind": "AGENCY"},
	)
	d := NewDirectory(m)
	ctx := context.Background()

	for _, name := range []string{"%%", "_", "r_sa", `\`} {
		_, err := d.Resolve(ctx, name)
		require.ErrorIs(t, err, shared.ErrNotFound, name)
	}

	p, err := d.Resolve(ctx, "0% and")
	require.NoError(t, err)
	require.Equal(t, int64(2), p.ID)
}
