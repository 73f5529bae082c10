package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"micromes/pkg/contracts/domain"
)

//go:embed default_registry.yaml
var defaultRegistryYAML []byte

const (
	DefaultSubgroupSize      = 5
	DefaultMinimumSampleSize = 50
	DefaultHeaderRows        = 1
)

// ParameterConfig maps a named measurement to its sheet coordinates,
// specification limits and the part number it applies to
type ParameterConfig struct {
	Name            string            `json:"name" validate:"required"`
	SerialColumn    int               `json:"sn_column" validate:"min=1"`
	ValueColumn     int               `json:"value_column" validate:"min=1"`
	StartRow        int               `json:"start_row" validate:"min=1"`
	Limits          domain.SpecLimits `json:"limits"`
	MatchPartNumber string            `json:"match_part_number" validate:"required"`
}

// CellRef is a 1-based (row, column) coordinate
type CellRef struct {
	Row    int `json:"row" validate:"min=1"`
	Column int `json:"column" validate:"min=1"`
}

// Registry is the immutable parameter registry loaded at startup
type Registry struct {
	params            []ParameterConfig
	modules           map[string]string
	PartNumberCell    CellRef
	HeaderRows        int
	Sheet             string
	SubgroupSize      int
	MinimumSampleSize int
}

type registryFile struct {
	PartNumberCell    []int             `yaml:"part_number_cell"`
	HeaderRows        *int              `yaml:"header_rows"`
	Sheet             string            `yaml:"sheet"`
	SubgroupSize      *int              `yaml:"subgroup_size"`
	MinimumSampleSize *int              `yaml:"minimum_sample_size"`
	Modules           map[string]string `yaml:"modules"`
	Parameters        yaml.MapSlice     `yaml:"parameters"`
}

var registryValidator = validator.New()

// LoadRegistry reads a registry file. An empty path loads the embedded
// plant registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return reg, nil
}

// DefaultRegistry returns the embedded plant registry
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultRegistryYAML)
}

// ParseRegistry decodes and validates registry YAML
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	reg := &Registry{
		modules:           make(map[string]string, len(file.Modules)),
		PartNumberCell:    CellRef{Row: 2, Column: 1},
		HeaderRows:        DefaultHeaderRows,
		Sheet:             strings.TrimSpace(file.Sheet),
		SubgroupSize:      DefaultSubgroupSize,
		MinimumSampleSize: DefaultMinimumSampleSize,
	}

	if file.PartNumberCell != nil {
		if len(file.PartNumberCell) != 2 {
			return nil, fmt.Errorf("part_number_cell must be [row, column], got %d values", len(file.PartNumberCell))
		}
		reg.PartNumberCell = CellRef{Row: file.PartNumberCell[0], Column: file.PartNumberCell[1]}
	}
	if err := registryValidator.Struct(reg.PartNumberCell); err != nil {
		return nil, fmt.Errorf("part_number_cell: coordinates must be >= 1")
	}

	if file.HeaderRows != nil {
		if *file.HeaderRows < 0 {
			return nil, fmt.Errorf("header_rows must be >= 0, got %d", *file.HeaderRows)
		}
		reg.HeaderRows = *file.HeaderRows
	}
	if file.SubgroupSize != nil {
		if *file.SubgroupSize < 1 {
			return nil, fmt.Errorf("subgroup_size must be >= 1, got %d", *file.SubgroupSize)
		}
		reg.SubgroupSize = *file.SubgroupSize
	}
	if file.MinimumSampleSize != nil {
		if *file.MinimumSampleSize < 1 {
			return nil, fmt.Errorf("minimum_sample_size must be >= 1, got %d", *file.MinimumSampleSize)
		}
		reg.MinimumSampleSize = *file.MinimumSampleSize
	}

	for pn, name := range file.Modules {
		reg.modules[strings.TrimSpace(pn)] = name
	}

	seen := make(map[string]bool, len(file.Parameters))
	for _, item := range file.Parameters {
		name, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("parameter name %v is not a string", item.Key)
		}
		p, err := parseParameter(name, item.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		key := p.Name + "\x00" + p.MatchPartNumber
		if seen[key] {
			return nil, fmt.Errorf("parameter %q: duplicate entry", name)
		}
		seen[key] = true
		reg.params = append(reg.params, p)
	}

	return reg, nil
}

func parseParameter(name string, raw interface{}) (ParameterConfig, error) {
	tuple, ok := raw.([]interface{})
	if !ok {
		return ParameterConfig{}, fmt.Errorf("expected [sn_column, value_column, start_row, lower_limit, upper_limit, part_number]")
	}
	if len(tuple) != 6 {
		return ParameterConfig{}, fmt.Errorf("expected 6 values, got %d", len(tuple))
	}

	var (
		p   = ParameterConfig{Name: name}
		err error
	)
	if p.SerialColumn, err = asInt(tuple[0], "sn_column"); err != nil {
		return p, err
	}
	if p.ValueColumn, err = asInt(tuple[1], "value_column"); err != nil {
		return p, err
	}
	if p.StartRow, err = asInt(tuple[2], "start_row"); err != nil {
		return p, err
	}
	if p.Limits.Lower, err = asLimit(tuple[3], "lower_limit"); err != nil {
		return p, err
	}
	if p.Limits.Upper, err = asLimit(tuple[4], "upper_limit"); err != nil {
		return p, err
	}
	pn, ok := tuple[5].(string)
	if !ok {
		return p, fmt.Errorf("part_number must be a string, got %v", tuple[5])
	}
	p.MatchPartNumber = strings.TrimSpace(pn)

	if err := registryValidator.Struct(p); err != nil {
		return p, describeValidation(err)
	}
	if p.Limits.Configured() && *p.Limits.Lower > *p.Limits.Upper {
		return p, fmt.Errorf("lower_limit %g exceeds upper_limit %g", *p.Limits.Lower, *p.Limits.Upper)
	}
	return p, nil
}

func asInt(v interface{}, field string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %v", field, v)
	}
}

func asLimit(v interface{}, field string) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	default:
		return nil, fmt.Errorf("%s must be a number or ~, got %v", field, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s must be finite", field)
	}
	return &f, nil
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "min":
		return fmt.Errorf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Parameters returns every parameter in registry order
func (r *Registry) Parameters() []ParameterConfig {
	out := make([]ParameterConfig, len(r.params))
	copy(out, r.params)
	return out
}

// ForPartNumber returns the parameters matching pn, in registry order
func (r *Registry) ForPartNumber(pn string) []ParameterConfig {
	var out []ParameterConfig
	for _, p := range r.params {
		if p.MatchPartNumber == pn {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds the parameter configured for (name, pn)
func (r *Registry) Lookup(name, pn string) (ParameterConfig, bool) {
	for _, p := range r.params {
		if p.Name == name && p.MatchPartNumber == pn {
			return p, true
		}
	}
	return ParameterConfig{}, false
}

// ModuleName returns the display name of the module built from pn
func (r *Registry) ModuleName(pn string) string {
	if name, ok := r.modules[pn]; ok {
		return name
	}
	return domain.UnknownPartNumber
}

// PartNumbers returns the distinct part numbers referenced by parameters,
// in first-seen order
func (r *Registry) PartNumbers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.params {
		if !seen[p.MatchPartNumber] {
			seen[p.MatchPartNumber] = true
			out = append(out, p.MatchPartNumber)
		}
	}
	return out
}

// SheetRow converts a data-row coordinate (counted below the header rows)
// into a 1-based sheet row
func (r *Registry) SheetRow(dataRow int) int {
	return dataRow + r.HeaderRows
}
