// Package models defines the indicator catalog, the tidy tables passed between
// pipeline stages, and the error taxonomy shared by all stages.
package models

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog validation errors.
var (
	ErrEmptyCatalog      = errors.New("indicator catalog is empty")
	ErrEmptyIndicator    = errors.New("indicator code and name are required")
	ErrDuplicateCode     = errors.New("duplicate indicator code")
	ErrDuplicateName     = errors.New("duplicate indicator name")
	ErrReservedIndicator = errors.New("indicator name collides with an identifying column")
)

// Indicator pairs a WDI series code with the column name used in output.
type Indicator struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Catalog is an ordered set of indicators. The order decides the order of the
// indicator columns in every table built from it.
type Catalog []Indicator

// DefaultCatalog returns the crop-yield study indicators.
func DefaultCatalog() Catalog {
	return Catalog{
		// Agriculture
		{Code: "AG.YLD.CREL.KG", Name: "cereal_yield"},
		{Code: "AG.LND.PRCP.MM", Name: "precipitation"},
		{Code: "AG.CON.FERT.ZS", Name: "fertilizer_use"},
		// Climate and environment
		{Code: "EN.GHG.CO2.MT.CE.AR5", Name: "co2_total_mt"},
		{Code: "EN.GHG.CO2.PC.CE.AR5", Name: "co2_per_capita"},
		{Code: "AG.LND.FRST.ZS", Name: "forest_area_pct"},
		// Socio-economic
		{Code: "NY.GDP.PCAP.CD", Name: "gdp_per_capita"},
		{Code: "SP.POP.TOTL", Name: "population"},
		{Code: "SP.RUR.TOTL.ZS", Name: "rural_pop_pct"},
		{Code: "SL.AGR.EMPL.ZS", Name: "agri_employment_pct"},
		// Land and irrigation
		{Code: "AG.LND.ARBL.ZS", Name: "arable_land_pct"},
		{Code: "AG.LND.IRIG.AG.ZS", Name: "irrigated_land_pct"},
	}
}

// Validate checks that codes and names are present and unique.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCatalog
	}

	codes := make(map[string]struct{}, len(c))
	names := make(map[string]struct{}, len(c))

	for i, ind := range c {
		if strings.TrimSpace(ind.Code) == "" || strings.TrimSpace(ind.Name) == "" {
			return fmt.Errorf("%w: indicator[%d]", ErrEmptyIndicator, i)
		}

		if _, dup := codes[ind.Code]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, ind.Code)
		}

		if _, dup := names[ind.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateName, ind.Name)
		}

		if isReserved(ind.Name) {
			return fmt.Errorf("%w: %s", ErrReservedIndicator, ind.Name)
		}

		codes[ind.Code] = struct{}{}
		names[ind.Name] = struct{}{}
	}

	return nil
}

// reservedNames are the column names of the tidy tables and the sink tables.
// SQLite and MySQL compare column names without case, so neither does this.
var reservedNames = []string{
	ColCountryName, ColCountryCode, ColYear, ColTempAnomaly,
	ColRunID, SQLColCountryName, SQLColCountryCode,
}

func isReserved(name string) bool {
	for _, r := range reservedNames {
		if strings.EqualFold(name, r) {
			return true
		}
	}

	return false
}

// Positions maps each code to its catalog position.
func (c Catalog) Positions() map[string]int {
	pos := make(map[string]int, len(c))
	for i, ind := range c {
		pos[ind.Code] = i
	}

	return pos
}

// Lookup returns the friendly name for code.
func (c Catalog) Lookup(code string) (string, bool) {
	for _, ind := range c {
		if ind.Code == code {
			return ind.Name, true
		}
	}

	return "", false
}

// Codes returns the indicator codes in catalog order.
func (c Catalog) Codes() []string {
	codes := make([]string, len(c))
	for i, ind := range c {
		codes[i] = ind.Code
	}

	return codes
}

// UnmarshalYAML accepts either a mapping of code to name, kept in document
// order, or a sequence of {code, name} entries.
func (c *Catalog) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Catalog, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
				return fmt.Errorf("indicators: line %d: expected code: name", key.Line)
			}

			out = append(out, Indicator{Code: key.Value, Name: val.Value})
		}

		*c = out

		return nil

	case yaml.SequenceNode:
		var entries []Indicator
		if err := node.Decode(&entries); err != nil {
			return fmt.Errorf("indicators: %w", err)
		}

		*c = entries

		return nil

	default:
		return fmt.Errorf("indicators: line %d: expected mapping or sequence", node.Line)
	}
}

// MarshalYAML writes the catalog as an ordered mapping.
func (c Catalog) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, ind := range c {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ind.Code},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ind.Name},
		)
	}

	return node, nil
}
