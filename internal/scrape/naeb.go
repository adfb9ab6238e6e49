package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// NAEBSource is the catalog name of the Native American Ethnobotany
// Database, served as a Datasette JSON API.
const NAEBSource = "NAEB Datasette"

const (
	naebBaseURL  = "https://naeb.louispotok.com"
	naebPageSize = 100
)

func init() {
	Register(NAEBSource, func(ctx context.Context, st *store.Store, config map[string]any) Scraper {
		return NewNAEB(ctx, st, config)
	})
}

// NAEB walks the species and uses tables page by page. The species
// pass is resumable via the page cursor.
type NAEB struct {
	*Base
	baseURL string
}

func NewNAEB(ctx context.Context, st *store.Store, config map[string]any) *NAEB {
	n := &NAEB{Base: NewBase(ctx, st, NAEBSource, config), baseURL: naebBaseURL}
	if u, ok := config["url"].(string); ok && u != "" {
		n.baseURL = u
	}
	return n
}

type naebPage struct {
	Rows                   []map[string]any `json:"rows"`
	FilteredTableRowsCount int              `json:"filtered_table_rows_count"`
}

func (n *NAEB) tableCount(ctx context.Context, table string) (int, error) {
	var page naebPage
	params := url.Values{"_size": {"0"}}
	if err := n.GetJSON(ctx, fmt.Sprintf("%s/naeb/%s.json", n.baseURL, table), params, &page); err != nil {
		return 0, err
	}
	if page.FilteredTableRowsCount > 0 {
		return page.FilteredTableRowsCount, nil
	}
	return len(page.Rows), nil
}

func (n *NAEB) fetchPage(ctx context.Context, table string, offset int) ([]map[string]any, error) {
	var page naebPage
	params := url.Values{
		"_size":   {strconv.Itoa(naebPageSize)},
		"_offset": {strconv.Itoa(offset)},
	}
	if err := n.GetJSON(ctx, fmt.Sprintf("%s/naeb/%s.json", n.baseURL, table), params, &page); err != nil {
		return nil, err
	}
	return page.Rows, nil
}

func (n *NAEB) Scrape(ctx context.Context, resume *Progress, emit func(Record) bool) error {
	prog := n.Progress()
	if resume != nil {
		*prog = *resume
	}

	if err := n.scrapeTable(ctx, "species", true, emit); err != nil {
		return err
	}
	return n.scrapeTable(ctx, "uses", false, emit)
}

// scrapeTable pages through one table. Only the species pass advances
// the resumable page cursor; the uses pass always restarts.
func (n *NAEB) scrapeTable(ctx context.Context, table string, cursored bool, emit func(Record) bool) error {
	prog := n.Progress()

	total, err := n.tableCount(ctx, table)
	if err != nil {
		return err
	}

	offset := 0
	if cursored {
		prog.TotalItems = total
		offset = prog.CurrentPage * naebPageSize
	}

	for offset < total {
		if n.ShouldStop() {
			return nil
		}
		rows, err := n.fetchPage(ctx, table, offset)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			if !emit(Record{"table": table, "data": row}) {
				return nil
			}
		}
		offset += naebPageSize
		if cursored {
			prog.CurrentPage = offset / naebPageSize
		}
	}
	return nil
}

func (n *NAEB) Normalize(rec Record) (any, error) {
	table, _ := rec["table"].(string)
	data, _ := rec["data"].(map[string]any)

	switch table {
	case "species":
		latin := strField(data, "latin_name")
		common := strField(data, "common_name")
		name := common
		if name == "" {
			name = latin
		}
		family := strField(data, "family")
		if family == "" {
			family = "Unknown"
		}
		plant := &store.Plant{
			Name:           name,
			ScientificName: latin,
			Family:         strField(data, "family"),
			Description:    "Native American medicinal plant. Family: " + family,
		}
		if common != "" {
			plant.CommonNames = []string{common}
		}
		return plant, nil

	case "uses":
		use := strField(data, "use")
		if use == "" {
			return nil, nil
		}
		tribe := strField(data, "tribe")
		if tribe == "" {
			tribe = "Native American"
		}
		name := use
		if len(name) > 100 {
			name = name[:100]
		}
		return &store.Ailment{
			Name:        name,
			Category:    strField(data, "category"),
			Description: fmt.Sprintf("Traditional use by %s peoples: %s", tribe, use),
		}, nil
	}
	return nil, nil
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
