package aggregator

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/smartcity/mobility/internal/domain"
)

func option(id string) domain.MobilityOption {
	return domain.MobilityOption{ID: id, Name: id}
}

func departure(id string, estimated *time.Time) domain.MobilityOption {
	planned := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	return domain.MobilityOption{ID: id, DeparturePlanned: &planned, DepartureEstimated: estimated}
}

func at(minute int) *time.Time {
	t := time.Date(2024, 5, 1, 14, minute, 0, 0, time.UTC)
	return &t
}

func set(category domain.Category, options ...domain.MobilityOption) []domain.CategoryResponseSet {
	return []domain.CategoryResponseSet{{Category: category, Options: options}}
}

func optionIDs(options []domain.MobilityOption) []string {
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestProjectOrdersByPriority(t *testing.T) {
	all := domain.AllCategories()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		// Random subset applied in random arrival order
		perm := rng.Perm(len(all))
		ws := NewWorkingSet()
		present := make(map[domain.Category]bool)
		for _, idx := range perm {
			if rng.Intn(3) == 0 {
				continue
			}
			c := all[idx]
			present[c] = true
			ws.Apply(c, set(c, option(string(c))))
		}

		var expected []domain.Category
		for _, c := range all {
			if present[c] {
				expected = append(expected, c)
			}
		}

		got := ws.View().Categories()
		if len(expected) == 0 && len(got) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, expected) {
			t.Fatalf("round %d: categories = %v, expected %v", round, got, expected)
		}
	}
}

func TestProjectFiltersEmptyCategories(t *testing.T) {
	raw := RawResults{
		domain.CategoryTaxi:       set(domain.CategoryTaxi),
		domain.CategoryBus:        set(domain.CategoryBus, option("b1")),
		domain.CategoryBicycle:    nil,
		domain.CategoryCarSharing: {},
		domain.CategoryEScooter: {
			{Category: domain.CategoryEScooter},
			{Category: domain.CategoryEScooter, Options: []domain.MobilityOption{option("s1")}},
		},
		domain.Category("hovercraft"): set("hovercraft", option("h1")),
	}

	view := Project(raw)

	expected := []domain.Category{domain.CategoryBus, domain.CategoryEScooter}
	if got := view.Categories(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("categories = %v, expected %v", got, expected)
	}

	scooter, _ := view.Section(1)
	if len(scooter.Sets) != 1 {
		t.Errorf("empty sets should be dropped, got %d sets", len(scooter.Sets))
	}
}

func TestProjectSortsDepartures(t *testing.T) {
	raw := RawResults{
		domain.CategoryBus: set(domain.CategoryBus,
			departure("late", at(20)),
			departure("missing-1", nil),
			departure("early", at(5)),
			departure("tie-a", at(10)),
			departure("missing-2", nil),
			departure("tie-b", at(10)),
		),
	}

	view := Project(raw)
	section, ok := view.Section(0)
	if !ok {
		t.Fatal("expected one section")
	}

	got := optionIDs(section.Sets[0].Options)
	expected := []string{"early", "tie-a", "tie-b", "late", "missing-1", "missing-2"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("order = %v, expected %v", got, expected)
	}

	// Input untouched
	if ids := optionIDs(raw[domain.CategoryBus][0].Options); ids[0] != "late" {
		t.Errorf("Project mutated its input: %v", ids)
	}
}

func TestProjectDoesNotSortNonTransit(t *testing.T) {
	raw := RawResults{
		domain.CategoryBicycle: set(domain.CategoryBicycle,
			departure("second", at(30)),
			departure("first", at(1)),
		),
	}

	section, _ := Project(raw).Section(0)
	if got := optionIDs(section.Sets[0].Options); got[0] != "second" {
		t.Errorf("non-transit options should keep provider order, got %v", got)
	}
}

func TestSortDeparturesAllMissing(t *testing.T) {
	options := []domain.MobilityOption{departure("a", nil), departure("b", nil), departure("c", nil)}
	SortDepartures(options)
	if got := optionIDs(options); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("order = %v", got)
	}
}

func TestProjectIdempotent(t *testing.T) {
	raw := RawResults{
		domain.CategoryTram: set(domain.CategoryTram, departure("x", at(7)), departure("y", nil), departure("z", at(3))),
		domain.CategoryTaxi: set(domain.CategoryTaxi, option("t1"), option("t2")),
		domain.CategoryBus:  set(domain.CategoryBus, departure("b", at(1))),
	}

	first, err := json.Marshal(Project(raw))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Project(raw))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("projection not idempotent:\n%s\n%s", first, second)
	}
}

func TestWorkingSetApplyReplaces(t *testing.T) {
	ws := NewWorkingSet()
	ws.Apply(domain.CategoryTaxi, set(domain.CategoryTaxi, option("old")))
	ws.Apply(domain.CategoryTaxi, set(domain.CategoryTaxi, option("new")))

	section, ok := ws.View().Section(0)
	if !ok {
		t.Fatal("expected taxi section")
	}
	if got := optionIDs(section.Sets[0].Options); !reflect.DeepEqual(got, []string{"new"}) {
		t.Errorf("options = %v", got)
	}

	ws.Apply(domain.CategoryTaxi, nil)
	if n := len(ws.View().Sections); n != 0 {
		t.Errorf("emptied category should disappear, got %d sections", n)
	}

	ws.Apply(domain.CategoryBus, set(domain.CategoryBus, option("b")))
	ws.Reset()
	if len(ws.Raw()) != 0 {
		t.Error("Reset should drop all results")
	}
}

func TestWorkingSetConcurrentApply(t *testing.T) {
	ws := NewWorkingSet()
	var wg sync.WaitGroup
	for _, c := range domain.AllCategories() {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(c domain.Category) {
				defer wg.Done()
				ws.Apply(c, set(c, option(string(c))))
				_ = ws.View()
			}(c)
		}
	}
	wg.Wait()

	if got := ws.View().Categories(); !reflect.DeepEqual(got, domain.AllCategories()) {
		t.Errorf("categories = %v", got)
	}
}
