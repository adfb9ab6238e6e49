package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

func TestPubChem_Normalize(t *testing.T) {
	p := NewPubChem(context.Background(), newTestStore(t), nil)

	entity, err := p.Normalize(Record{
		"cid":  int64(969516),
		"name": "curcumin",
		"properties": map[string]any{
			"IUPACName":        "(1E,6E)-1,7-bis(4-hydroxy-3-methoxyphenyl)hepta-1,6-diene-3,5-dione",
			"MolecularFormula": "C21H20O6",
			"MolecularWeight":  368.4,
			"InChIKey":         "VFLDPWHFBUODDF-FCXRPNKRSA-N",
			"IsomericSMILES":   "COC1=C(C=CC(=C1)/C=C/C(=O)CC(=O)/C=C/C2=CC(=C(C=C2)O)OC)O",
		},
		"synonyms": []string{"curcumin", "diferuloylmethane"},
	})
	require.NoError(t, err)
	ing, ok := entity.(*store.Ingredient)
	require.True(t, ok)
	assert.Equal(t, "969516", ing.PubChemCID)
	assert.Equal(t, "C21H20O6", ing.MolecularFormula)
	assert.Equal(t, 368.4, ing.MolecularWeight)
	assert.Len(t, ing.Synonyms, 2)
	assert.Contains(t, ing.Description, "969516")
}

func TestPubChem_NormalizeFallsBackToSearchName(t *testing.T) {
	p := NewPubChem(context.Background(), newTestStore(t), nil)

	entity, err := p.Normalize(Record{
		"cid":        float64(2244),
		"name":       "allicin",
		"properties": map[string]any{},
	})
	require.NoError(t, err)
	ing := entity.(*store.Ingredient)
	assert.Equal(t, "allicin", ing.Name)
	// A journal round trip turns the cid into a float64.
	assert.Equal(t, "2244", ing.PubChemCID)
}

func TestPubChem_NormalizeStringWeight(t *testing.T) {
	p := NewPubChem(context.Background(), newTestStore(t), nil)

	entity, err := p.Normalize(Record{
		"cid":  int64(1),
		"name": "quercetin",
		"properties": map[string]any{
			"MolecularWeight": "302.23",
		},
	})
	require.NoError(t, err)
	ing := entity.(*store.Ingredient)
	assert.Equal(t, 302.23, ing.MolecularWeight)
}

func TestPubChem_DefaultRateLimit(t *testing.T) {
	st := newTestStore(t)

	// The documented provider ceiling applies unless the source config
	// pins its own.
	p := NewPubChem(context.Background(), st, nil)
	assert.InDelta(t, 5.0, float64(p.limiter.Limit()), 0.001)

	p = NewPubChem(context.Background(), st, map[string]any{"rate_limit": 2.0})
	assert.InDelta(t, 2.0, float64(p.limiter.Limit()), 0.001)
}
