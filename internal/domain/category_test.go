package domain

import (
	"testing"
	"time"
)

func TestAllCategoriesOrder(t *testing.T) {
	expected := []Category{
		CategoryAirplane, CategoryBus, CategoryCablecar, CategoryLongDistanceTrain,
		CategorySubway, CategoryTrain, CategoryTram, CategoryRegioTrain,
		CategoryEScooter, CategoryTaxi, CategoryBicycle, CategoryCarSharing,
	}

	got := AllCategories()
	if len(got) != len(expected) {
		t.Fatalf("AllCategories() returned %d categories, expected %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("AllCategories()[%d] = %q, expected %q", i, got[i], expected[i])
		}
		if idx, ok := got[i].Priority(); !ok || idx != i {
			t.Errorf("%q.Priority() = %d, %v, expected %d", got[i], idx, ok, i)
		}
		if c, ok := CategoryFromIndex(i); !ok || c != expected[i] {
			t.Errorf("CategoryFromIndex(%d) = %q, expected %q", i, c, expected[i])
		}
	}

	// Mutating the returned slice must not affect the priority list
	got[0] = CategoryTaxi
	if AllCategories()[0] != CategoryAirplane {
		t.Error("AllCategories should return a copy")
	}
}

func TestCategoryFromIndexOutOfRange(t *testing.T) {
	for _, idx := range []int{-1, 12, 100} {
		if _, ok := CategoryFromIndex(idx); ok {
			t.Errorf("CategoryFromIndex(%d) should fail", idx)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"bus", true},
		{"carSharing", true},
		{"regiotrain", true},
		{"Bus", false},
		{"", false},
		{"rocket", false},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			_, ok := ParseCategory(tc.raw)
			if ok != tc.ok {
				t.Errorf("ParseCategory(%q) ok = %v, expected %v", tc.raw, ok, tc.ok)
			}
		})
	}
}

func TestCategoryTitle(t *testing.T) {
	stopSet := CategoryResponseSet{Stop: &Stop{Name: "Solingen Hbf"}}

	tests := []struct {
		category Category
		set      CategoryResponseSet
		expected string
	}{
		{CategoryBus, stopSet, "Solingen Hbf"},
		{CategoryTram, CategoryResponseSet{}, ""},
		{CategoryEScooter, stopSet, "E-Scooter"},
		{CategoryTaxi, CategoryResponseSet{}, "Taxi"},
		{CategoryBicycle, CategoryResponseSet{}, "Bicycle"},
		{CategoryCarSharing, CategoryResponseSet{}, "Car sharing"},
		{Category("unknown"), stopSet, ""},
	}

	for _, tc := range tests {
		t.Run(string(tc.category), func(t *testing.T) {
			if got := tc.category.Title(tc.set); got != tc.expected {
				t.Errorf("Title() = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestIsPublicTransit(t *testing.T) {
	for i, c := range AllCategories() {
		want := i < 8
		if c.IsPublicTransit() != want {
			t.Errorf("%q.IsPublicTransit() = %v, expected %v", c, !want, want)
		}
	}
}

func TestDelayMinutes(t *testing.T) {
	tests := []struct {
		name     string
		option   MobilityOption
		expected int
	}{
		{"not delayed", MobilityOption{Delayed: false, Delay: 300}, 0},
		{"five minutes", MobilityOption{Delayed: true, Delay: 300}, 5},
		{"partial minute truncates", MobilityOption{Delayed: true, Delay: 150}, 2},
		{"zero", MobilityOption{Delayed: true}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.option.DelayMinutes(); got != tc.expected {
				t.Errorf("DelayMinutes() = %d, expected %d", got, tc.expected)
			}
		})
	}
}

func TestHasDeeplinks(t *testing.T) {
	set := CategoryResponseSet{Options: []MobilityOption{{ID: "a"}, {ID: "b", Deeplinks: &Deeplinks{}}}}
	if set.HasDeeplinks() {
		t.Error("set without targets should not report deeplinks")
	}

	set.Options = append(set.Options, MobilityOption{ID: "c", Deeplinks: &Deeplinks{IOS: "tier://open"}})
	if !set.HasDeeplinks() {
		t.Error("set with a target should report deeplinks")
	}
}

func TestLoadingStateString(t *testing.T) {
	if s := Failed(ErrorWeatherFetch).String(); s != "error(weatherFetch)" {
		t.Errorf("String() = %q", s)
	}
	if s := FinishedLoading().String(); s != "finishedLoading" {
		t.Errorf("String() = %q", s)
	}
	if Loading().IsError() {
		t.Error("loading is not an error state")
	}
}

func TestWeatherSnapshotValues(t *testing.T) {
	w := WeatherSnapshot{
		ObservedAt: time.Now(),
		Values: []WeatherValue{
			{Type: WeatherTemperature, Value: 12.5},
		},
	}
	if v, ok := w.Temperature(); !ok || v != 12.5 {
		t.Errorf("Temperature() = %v, %v", v, ok)
	}
	if _, ok := w.Precipitation(); ok {
		t.Error("Precipitation() should be missing")
	}
}
