package service

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/smartclaim/intake/internal/models"
)

type ResolutionStage string

const (
	StageExact    ResolutionStage = "exact"
	StagePartial  ResolutionStage = "partial"
	StageCategory ResolutionStage = "category"
	StageNone     ResolutionStage = "none"
)

// RoutingTable maps a ticket category to a department-name fragment.
type RoutingTable map[string]string

func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		models.CategorySafety:      "Safety",
		models.CategoryQuality:     "Quality",
		models.CategoryMaintenance: "Maintenance",
		models.CategoryLogistics:   "Logistics",
		models.CategoryHR:          "Human",
	}
}

// LoadRoutingTable reads a YAML `category: fragment` map layered over the
// defaults. An empty path returns the defaults.
func LoadRoutingTable(path string) (RoutingTable, error) {
	table := DefaultRoutingTable()
	if path == "" {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read routing table")
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, errors.Wrapf(err, "parse routing table %s", path)
	}
	for category, fragment := range overrides {
		category = strings.ToLower(strings.TrimSpace(category))
		fragment = strings.TrimSpace(fragment)
		if category == "" {
			continue
		}
		if fragment == "" {
			delete(table, category)
			continue
		}
		table[category] = fragment
	}
	return table, nil
}

type Resolution struct {
	Department *models.Department
	Stage      ResolutionStage
}

// ResolveDepartment walks exact name, partial name and category fragment in
// that order; the first stage that matches wins. Departments are scanned in
// name order so the result does not depend on the caller's ordering.
func ResolveDepartment(suggested, category string, departments []models.Department, table RoutingTable) Resolution {
	depts := make([]models.Department, len(departments))
	copy(depts, departments)
	sort.Slice(depts, func(i, j int) bool {
		if depts[i].Name == depts[j].Name {
			return depts[i].ID < depts[j].ID
		}
		return depts[i].Name < depts[j].Name
	})

	suggested = strings.TrimSpace(suggested)
	if suggested != "" {
		if d, ok := findDepartment(depts, func(name string) bool {
			return strings.EqualFold(strings.TrimSpace(name), suggested)
		}); ok {
			return Resolution{Department: &d, Stage: StageExact}
		}
		needle := strings.ToLower(suggested)
		if d, ok := findDepartment(depts, func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		}); ok {
			return Resolution{Department: &d, Stage: StagePartial}
		}
	}

	if fragment := table[strings.ToLower(strings.TrimSpace(category))]; fragment != "" {
		needle := strings.ToLower(fragment)
		if d, ok := findDepartment(depts, func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		}); ok {
			return Resolution{Department: &d, Stage: StageCategory}
		}
	}

	return Resolution{Stage: StageNone}
}

func findDepartment(depts []models.Department, match func(name string) bool) (models.Department, bool) {
	for _, d := range depts {
		if match(d.Name) {
			return d, true
		}
	}
	return models.Department{}, false
}
