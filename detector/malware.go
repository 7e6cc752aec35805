package detector

import (
	"fmt"
	"strings"
)

// MalwareRecord is one process descriptor snapshot. Every field is
// required; pointers let validation tell a missing field from a zero.
type MalwareRecord struct {
	Millisecond     *int64 `json:"millisecond" validate:"required,gte=0"`
	State           *int64 `json:"state" validate:"required"`
	UsageCounter    *int64 `json:"usage_counter" validate:"required,gte=0"`
	Prio            *int64 `json:"prio" validate:"required"`
	StaticPrio      *int64 `json:"static_prio" validate:"required"`
	NormalPrio      *int64 `json:"normal_prio" validate:"required"`
	Policy          *int64 `json:"policy" validate:"required"`
	VMPgOff         *int64 `json:"vm_pgoff" validate:"required"`
	VMTruncateCount *int64 `json:"vm_truncate_count" validate:"required"`
	TaskSize        *int64 `json:"task_size" validate:"required"`
	CachedHoleSize  *int64 `json:"cached_hole_size" validate:"required"`
	FreeAreaCache   *int64 `json:"free_area_cache" validate:"required"`
	MmUsers         *int64 `json:"mm_users" validate:"required,gte=0"`
	MapCount        *int64 `json:"map_count" validate:"required,gte=0"`
	HiwaterRss      *int64 `json:"hiwater_rss" validate:"required,gte=0"`
	TotalVM         *int64 `json:"total_vm" validate:"required,gte=0"`
	SharedVM        *int64 `json:"shared_vm" validate:"required,gte=0"`
	ExecVM          *int64 `json:"exec_vm" validate:"required,gte=0"`
	ReservedVM      *int64 `json:"reserved_vm" validate:"required,gte=0"`
	NrPtes          *int64 `json:"nr_ptes" validate:"required,gte=0"`
	EndData         *int64 `json:"end_data" validate:"required"`
	LastInterval    *int64 `json:"last_interval" validate:"required"`
	Nvcsw           *int64 `json:"nvcsw" validate:"required,gte=0"`
	Nivcsw          *int64 `json:"nivcsw" validate:"required,gte=0"`
	MinFlt          *int64 `json:"min_flt" validate:"required,gte=0"`
	MajFlt          *int64 `json:"maj_flt" validate:"required,gte=0"`
	FSExclCounter   *int64 `json:"fs_excl_counter" validate:"required,gte=0"`
	Lock            *int64 `json:"lock" validate:"required"`
	Utime           *int64 `json:"utime" validate:"required,gte=0"`
	Stime           *int64 `json:"stime" validate:"required,gte=0"`
	Gtime           *int64 `json:"gtime" validate:"required,gte=0"`
	Cgtime          *int64 `json:"cgtime" validate:"required,gte=0"`
	SignalNvcsw     *int64 `json:"signal_nvcsw" validate:"required,gte=0"`
}

type malwareField struct {
	name string
	get  func(*MalwareRecord) *int64
}

// malwareFields is the declaration order of MalwareRecord.
var malwareFields = []malwareField{
	{"millisecond", func(r *MalwareRecord) *int64 { return r.Millisecond }},
	{"state", func(r *MalwareRecord) *int64 { return r.State }},
	{"usage_counter", func(r *MalwareRecord) *int64 { return r.UsageCounter }},
	{"prio", func(r *MalwareRecord) *int64 { return r.Prio }},
	{"static_prio", func(r *MalwareRecord) *int64 { return r.StaticPrio }},
	{"normal_prio", func(r *MalwareRecord) *int64 { return r.NormalPrio }},
	{"policy", func(r *MalwareRecord) *int64 { return r.Policy }},
	{"vm_pgoff", func(r *MalwareRecord) *int64 { return r.VMPgOff }},
	{"vm_truncate_count", func(r *MalwareRecord) *int64 { return r.VMTruncateCount }},
	{"task_size", func(r *MalwareRecord) *int64 { return r.TaskSize }},
	{"cached_hole_size", func(r *MalwareRecord) *int64 { return r.CachedHoleSize }},
	{"free_area_cache", func(r *MalwareRecord) *int64 { return r.FreeAreaCache }},
	{"mm_users", func(r *MalwareRecord) *int64 { return r.MmUsers }},
	{"map_count", func(r *MalwareRecord) *int64 { return r.MapCount }},
	{"hiwater_rss", func(r *MalwareRecord) *int64 { return r.HiwaterRss }},
	{"total_vm", func(r *MalwareRecord) *int64 { return r.TotalVM }},
	{"shared_vm", func(r *MalwareRecord) *int64 { return r.SharedVM }},
	{"exec_vm", func(r *MalwareRecord) *int64 { return r.ExecVM }},
	{"reserved_vm", func(r *MalwareRecord) *int64 { return r.ReservedVM }},
	{"nr_ptes", func(r *MalwareRecord) *int64 { return r.NrPtes }},
	{"end_data", func(r *MalwareRecord) *int64 { return r.EndData }},
	{"last_interval", func(r *MalwareRecord) *int64 { return r.LastInterval }},
	{"nvcsw", func(r *MalwareRecord) *int64 { return r.Nvcsw }},
	{"nivcsw", func(r *MalwareRecord) *int64 { return r.Nivcsw }},
	{"min_flt", func(r *MalwareRecord) *int64 { return r.MinFlt }},
	{"maj_flt", func(r *MalwareRecord) *int64 { return r.MajFlt }},
	{"fs_excl_counter", func(r *MalwareRecord) *int64 { return r.FSExclCounter }},
	{"lock", func(r *MalwareRecord) *int64 { return r.Lock }},
	{"utime", func(r *MalwareRecord) *int64 { return r.Utime }},
	{"stime", func(r *MalwareRecord) *int64 { return r.Stime }},
	{"gtime", func(r *MalwareRecord) *int64 { return r.Gtime }},
	{"cgtime", func(r *MalwareRecord) *int64 { return r.Cgtime }},
	{"signal_nvcsw", func(r *MalwareRecord) *int64 { return r.SignalNvcsw }},
}

var malwareFieldIndex = func() map[string]int {
	idx := make(map[string]int, len(malwareFields))
	for i, f := range malwareFields {
		idx[f.name] = i
	}
	return idx
}()

// MalwareFieldNames lists the record's fields in declaration order.
func MalwareFieldNames() []string {
	names := make([]string, len(malwareFields))
	for i, f := range malwareFields {
		names[i] = f.name
	}
	return names
}

// Values returns the record keyed by field name. Missing fields are
// left out, so alignment can report them.
func (r *MalwareRecord) Values() map[string]float64 {
	values := make(map[string]float64, len(malwareFields))
	for _, f := range malwareFields {
		if v := f.get(r); v != nil {
			values[f.name] = float64(*v)
		}
	}
	return values
}

// AlignFeatures selects values into exactly the given column order.
// Extra values are ignored; a missing column is an error.
func AlignFeatures(values map[string]float64, order []string) ([]float64, error) {
	row := make([]float64, len(order))
	var missing []string
	for i, name := range order {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing features: [%s]", strings.Join(missing, ", "))
	}
	return row, nil
}

// CheckMalwareSchema verifies a fitted feature list can always be served
// from a MalwareRecord.
func CheckMalwareSchema(featureNames []string) error {
	if len(featureNames) == 0 {
		return fmt.Errorf("malware feature list is empty")
	}
	seen := make(map[string]bool, len(featureNames))
	var unknown []string
	for _, name := range featureNames {
		if seen[name] {
			return fmt.Errorf("duplicate malware feature %q", name)
		}
		seen[name] = true
		if _, ok := malwareFieldIndex[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("malware features not provided by the request schema: [%s]", strings.Join(unknown, ", "))
	}
	return nil
}
