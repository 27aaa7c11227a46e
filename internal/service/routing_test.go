package service

import (
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/smartclaim/intake/internal/models"
)

var testDepartments = []models.Department{
	{ID: "d1", Name: "Safety"},
	{ID: "d2", Name: "Quality Assurance"},
	{ID: "d3", Name: "Plant Maintenance"},
	{ID: "d4", Name: "Human Resources"},
}

func TestResolveDepartmentStages(t *testing.T) {
	table := DefaultRoutingTable()
	cases := []struct {
		name      string
		suggested string
		category  string
		wantID    string
		wantStage ResolutionStage
	}{
		{"exact", "safety", models.CategoryOther, "d1", StageExact},
		{"partial", "quality", models.CategoryOther, "d2", StagePartial},
		{"category fragment", "Maintenance Dept", models.CategoryMaintenance, "d3", StageCategory},
		{"hr fragment", "", models.CategoryHR, "d4", StageCategory},
		{"none", "Finance", models.CategoryOther, "", StageNone},
		{"no fragment for logistics dept", "", models.CategoryLogistics, "", StageNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ResolveDepartment(tc.suggested, tc.category, testDepartments, table)
			if res.Stage != tc.wantStage {
				t.Fatalf("expected stage %s, got %s", tc.wantStage, res.Stage)
			}
			gotID := ""
			if res.Department != nil {
				gotID = res.Department.ID
			}
			if gotID != tc.wantID {
				t.Fatalf("expected department %q, got %q", tc.wantID, gotID)
			}
		})
	}
}

func TestResolveDepartmentExactBeatsPartial(t *testing.T) {
	depts := []models.Department{{ID: "a", Name: "Safety Office"}, {ID: "b", Name: "Safety"}}
	res := ResolveDepartment("Safety", models.CategorySafety, depts, DefaultRoutingTable())
	if res.Stage != StageExact || res.Department.ID != "b" {
		t.Fatalf("expected exact match on b, got %+v", res)
	}
}

func TestLoadRoutingTableOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	body := "logistics: Supply Chain\nhr: \"\"\nOther: General\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := LoadRoutingTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table[models.CategoryLogistics] != "Supply Chain" {
		t.Fatalf("expected override, got %q", table[models.CategoryLogistics])
	}
	if _, ok := table[models.CategoryHR]; ok {
		t.Fatalf("expected empty fragment to remove hr")
	}
	if table[models.CategoryOther] != "General" || table[models.CategorySafety] != "Safety" {
		t.Fatalf("unexpected table %v", table)
	}
}

func TestLoadRoutingTableErrors(t *testing.T) {
	if _, err := LoadRoutingTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("- not\n- a map\n"), 0o644)
	if _, err := LoadRoutingTable(path); err == nil {
		t.Fatalf("expected error for non-map yaml")
	}
	table, err := LoadRoutingTable("")
	if err != nil || len(table) != len(DefaultRoutingTable()) {
		t.Fatalf("expected defaults for empty path")
	}
}

func TestResolveDepartmentDeterministic(t *testing.T) {
	names := []string{"Safety", "Quality", "Plant Maintenance", "Logistics Hub", "Human Resources", "Finance", "Safety Office"}
	categories := []string{
		models.CategorySafety, models.CategoryQuality, models.CategoryMaintenance,
		models.CategoryLogistics, models.CategoryHR, models.CategoryOther,
	}
	table := DefaultRoutingTable()

	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfDistinct(rapid.SampledFrom(names), func(s string) string { return s }).Draw(t, "departments")
		depts := make([]models.Department, len(picked))
		for i, n := range picked {
			depts[i] = models.Department{ID: "id-" + n, Name: n}
		}
		suggested := rapid.OneOf(rapid.SampledFrom(names), rapid.StringMatching(`[A-Za-z ]{0,12}`)).Draw(t, "suggested")
		category := rapid.SampledFrom(categories).Draw(t, "category")

		first := ResolveDepartment(suggested, category, depts, table)

		// Same inputs in any order give the same answer.
		shuffled := make([]models.Department, len(depts))
		for i, j := range rapid.Permutation(indexes(len(depts))).Draw(t, "perm") {
			shuffled[i] = depts[j]
		}
		second := ResolveDepartment(suggested, category, shuffled, table)
		if first.Stage != second.Stage || deptID(first) != deptID(second) {
			t.Fatalf("non-deterministic resolution: %+v vs %+v", first, second)
		}

		// A matched stage implies every earlier stage had no match.
		switch first.Stage {
		case StagePartial, StageCategory, StageNone:
			if exact := ResolveDepartment(suggested, "", depts, RoutingTable{}); exact.Stage == StageExact {
				t.Fatalf("exact match skipped: %+v", first)
			}
		}
		if first.Stage == StageNone && first.Department != nil {
			t.Fatalf("none stage must not carry a department")
		}
	})
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func deptID(r Resolution) string {
	if r.Department == nil {
		return ""
	}
	return r.Department.ID
}
