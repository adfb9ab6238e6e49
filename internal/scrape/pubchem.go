package scrape

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// PubChemSource is the catalog name of the PubChem PUG REST provider.
const PubChemSource = "PubChem"

const pubchemBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

// Compounds of interest for the traditional-medicine catalog.
var pubchemCompounds = []string{
	"curcumin", "quercetin", "resveratrol", "berberine", "ginsenoside",
	"catechin", "kaempferol", "luteolin", "apigenin", "naringenin",
	"hesperidin", "rutin", "chlorogenic acid", "caffeic acid", "ferulic acid",
	"rosmarinic acid", "ursolic acid", "oleanolic acid", "betulinic acid",
	"asiaticoside", "withanolide", "artemisinin", "thymoquinone", "allicin", "capsaicin",
}

func init() {
	Register(PubChemSource, func(ctx context.Context, st *store.Store, config map[string]any) Scraper {
		return NewPubChem(ctx, st, config)
	})
}

// PubChem looks up a fixed list of phytochemicals: name search, then
// properties and synonyms per compound id. LastID carries the last
// fully processed compound name for resumption.
type PubChem struct {
	*Base
	baseURL string
}

func NewPubChem(ctx context.Context, st *store.Store, config map[string]any) *PubChem {
	p := &PubChem{Base: NewBase(ctx, st, PubChemSource, config), baseURL: pubchemBaseURL}
	// PubChem documents a ceiling of 5 requests per second.
	if _, ok := config["rate_limit"]; !ok {
		p.SetRateLimit(5)
	}
	return p
}

func (p *PubChem) searchCompounds(ctx context.Context, name string, max int) []int64 {
	var out struct {
		IdentifierList struct {
			CID []int64 `json:"CID"`
		} `json:"IdentifierList"`
	}
	u := fmt.Sprintf("%s/compound/name/%s/cids/JSON", p.baseURL, name)
	if err := p.GetJSON(ctx, u, nil, &out); err != nil {
		return nil
	}
	cids := out.IdentifierList.CID
	if len(cids) > max {
		cids = cids[:max]
	}
	return cids
}

func (p *PubChem) compoundProperties(ctx context.Context, cid int64) map[string]any {
	var out struct {
		PropertyTable struct {
			Properties []map[string]any `json:"Properties"`
		} `json:"PropertyTable"`
	}
	u := fmt.Sprintf("%s/compound/cid/%d/property/MolecularFormula,MolecularWeight,IsomericSMILES,InChIKey,IUPACName/JSON", p.baseURL, cid)
	if err := p.GetJSON(ctx, u, nil, &out); err != nil {
		return nil
	}
	if len(out.PropertyTable.Properties) == 0 {
		return nil
	}
	return out.PropertyTable.Properties[0]
}

func (p *PubChem) compoundSynonyms(ctx context.Context, cid int64) []string {
	var out struct {
		InformationList struct {
			Information []struct {
				Synonym []string `json:"Synonym"`
			} `json:"Information"`
		} `json:"InformationList"`
	}
	u := fmt.Sprintf("%s/compound/cid/%d/synonyms/JSON", p.baseURL, cid)
	if err := p.GetJSON(ctx, u, nil, &out); err != nil {
		return nil
	}
	info := out.InformationList.Information
	if len(info) == 0 {
		return nil
	}
	syns := info[0].Synonym
	if len(syns) > 10 {
		syns = syns[:10]
	}
	return syns
}

func (p *PubChem) Scrape(ctx context.Context, resume *Progress, emit func(Record) bool) error {
	prog := p.Progress()
	if resume != nil {
		*prog = *resume
	}
	prog.TotalItems = len(pubchemCompounds)

	// Skip compounds already covered by a previous run.
	skipPast := prog.LastID

	for _, name := range pubchemCompounds {
		if skipPast != "" {
			if name == skipPast {
				skipPast = ""
			}
			continue
		}
		if p.ShouldStop() {
			return nil
		}
		for _, cid := range p.searchCompounds(ctx, name, 5) {
			props := p.compoundProperties(ctx, cid)
			if props == nil {
				continue
			}
			rec := Record{
				"cid":        cid,
				"name":       name,
				"properties": props,
				"synonyms":   p.compoundSynonyms(ctx, cid),
			}
			if !emit(rec) {
				return nil
			}
		}
		prog.LastID = name
	}
	return nil
}

func (p *PubChem) Normalize(rec Record) (any, error) {
	props, _ := rec["properties"].(map[string]any)
	name := strField(props, "IUPACName")
	if name == "" {
		name = strField(rec, "name")
	}

	cid := ""
	switch v := rec["cid"].(type) {
	case int64:
		cid = strconv.FormatInt(v, 10)
	case float64:
		cid = strconv.FormatInt(int64(v), 10)
	}

	syns, _ := rec["synonyms"].([]string)

	return &store.Ingredient{
		Name:             name,
		Synonyms:         syns,
		PubChemCID:       cid,
		InChIKey:         strField(props, "InChIKey"),
		SMILES:           strField(props, "IsomericSMILES"),
		MolecularFormula: strField(props, "MolecularFormula"),
		MolecularWeight:  floatField(props, "MolecularWeight"),
		Description:      "Natural compound. PubChem CID: " + cid,
	}, nil
}

// floatField tolerates both numeric and string-encoded weights; the
// PUG REST API has returned both over time.
func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}
