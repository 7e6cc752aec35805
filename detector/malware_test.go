package detector

import (
	"slices"
	"strings"
	"testing"
)

func TestMalwareFieldNames(t *testing.T) {
	names := MalwareFieldNames()
	if len(names) != 33 {
		t.Fatalf("expected 33 record fields, got %d", len(names))
	}
	if names[0] != "millisecond" || names[len(names)-1] != "signal_nvcsw" {
		t.Fatalf("unexpected declaration order: %v", names)
	}
}

func TestAlignFeaturesIgnoresInputOrder(t *testing.T) {
	canonical := []byte(`{"millisecond":1,"state":2,"usage_counter":3,"prio":4,"static_prio":5,"normal_prio":6,
		"policy":7,"vm_pgoff":8,"vm_truncate_count":9,"task_size":10,"cached_hole_size":11,"free_area_cache":12,
		"mm_users":13,"map_count":14,"hiwater_rss":15,"total_vm":16,"shared_vm":17,"exec_vm":18,"reserved_vm":19,
		"nr_ptes":20,"end_data":21,"last_interval":22,"nvcsw":23,"nivcsw":24,"min_flt":25,"maj_flt":26,
		"fs_excl_counter":27,"lock":28,"utime":29,"stime":30,"gtime":31,"cgtime":32,"signal_nvcsw":33}`)
	permuted := []byte(`{"signal_nvcsw":33,"cgtime":32,"gtime":31,"stime":30,"utime":29,"lock":28,
		"fs_excl_counter":27,"maj_flt":26,"min_flt":25,"nivcsw":24,"nvcsw":23,"last_interval":22,"end_data":21,
		"nr_ptes":20,"reserved_vm":19,"exec_vm":18,"shared_vm":17,"total_vm":16,"hiwater_rss":15,"map_count":14,
		"mm_users":13,"free_area_cache":12,"cached_hole_size":11,"task_size":10,"vm_truncate_count":9,"vm_pgoff":8,
		"policy":7,"normal_prio":6,"static_prio":5,"prio":4,"usage_counter":3,"state":2,"millisecond":1}`)

	order := []string{"task_size", "map_count", "millisecond", "signal_nvcsw"}
	a := decodeMalware(t, canonical)
	b := decodeMalware(t, permuted)

	rowA, err := AlignFeatures(a.Values(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rowB, err := AlignFeatures(b.Values(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(rowA, rowB) {
		t.Fatalf("aligned rows differ: %v vs %v", rowA, rowB)
	}
	if !slices.Equal(rowA, []float64{10, 14, 1, 33}) {
		t.Fatalf("row does not follow the fitted order: %v", rowA)
	}
}

func TestAlignFeaturesMissingColumn(t *testing.T) {
	_, err := AlignFeatures(map[string]float64{"task_size": 1}, []string{"task_size", "map_count"})
	if err == nil {
		t.Fatal("expected error for missing feature")
	}
	if !strings.Contains(err.Error(), "map_count") {
		t.Fatalf("error should name the missing feature: %v", err)
	}
}

func TestAlignFeaturesDropsExtras(t *testing.T) {
	row, err := AlignFeatures(map[string]float64{"a": 1, "b": 2, "c": 3}, []string{"c", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(row, []float64{3, 1}) {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestCheckMalwareSchema(t *testing.T) {
	if err := CheckMalwareSchema(MalwareFieldNames()); err != nil {
		t.Fatalf("full field list should satisfy the schema: %v", err)
	}
	if err := CheckMalwareSchema(nil); err == nil {
		t.Fatal("expected error for empty list")
	}
	if err := CheckMalwareSchema([]string{"task_size", "task_size"}); err == nil {
		t.Fatal("expected error for duplicate feature")
	}
	err := CheckMalwareSchema([]string{"task_size", "cpu_temp"})
	if err == nil || !strings.Contains(err.Error(), "cpu_temp") {
		t.Fatalf("expected error naming the unknown feature, got %v", err)
	}
}
