package domain

// Category identifies one kind of mobility option offered by the provider
type Category string

const (
	CategoryAirplane          Category = "airplane"
	CategoryBus               Category = "bus"
	CategoryCablecar          Category = "cablecar"
	CategoryLongDistanceTrain Category = "longDistanceTrain"
	CategorySubway            Category = "subway"
	CategoryTrain             Category = "train"
	CategoryTram              Category = "tram"
	CategoryRegioTrain        Category = "regiotrain"
	CategoryEScooter          Category = "escooter"
	CategoryTaxi              Category = "taxi"
	CategoryBicycle           Category = "bicycle"
	CategoryCarSharing        Category = "carSharing"
)

// allCategories is the display priority. It never changes at runtime.
var allCategories = []Category{
	CategoryAirplane,
	CategoryBus,
	CategoryCablecar,
	CategoryLongDistanceTrain,
	CategorySubway,
	CategoryTrain,
	CategoryTram,
	CategoryRegioTrain,
	CategoryEScooter,
	CategoryTaxi,
	CategoryBicycle,
	CategoryCarSharing,
}

var categoryPriority = func() map[Category]int {
	m := make(map[Category]int, len(allCategories))
	for i, c := range allCategories {
		m[c] = i
	}
	return m
}()

// AllCategories returns every category in display priority order
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryFromIndex returns the category at the given priority index
func CategoryFromIndex(index int) (Category, bool) {
	if index < 0 || index >= len(allCategories) {
		return "", false
	}
	return allCategories[index], true
}

// ParseCategory validates a raw category name
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	_, ok := categoryPriority[c]
	return c, ok
}

// Priority returns the position of c in the priority list.
// ok is false for categories outside the list.
func (c Category) Priority() (index int, ok bool) {
	index, ok = categoryPriority[c]
	return index, ok
}

// IsPublicTransit reports whether options of c are scheduled departures
func (c Category) IsPublicTransit() bool {
	return categoryDisplay[c].publicTransit
}

// Title returns the section title for a response set of this category.
// Public transit sections are titled after their stop.
func (c Category) Title(set CategoryResponseSet) string {
	d, ok := categoryDisplay[c]
	if !ok {
		return ""
	}
	if d.publicTransit {
		if set.Stop != nil {
			return set.Stop.Name
		}
		return ""
	}
	return d.title
}

type categoryMeta struct {
	title         string
	publicTransit bool
}

var categoryDisplay = map[Category]categoryMeta{
	CategoryAirplane:          {publicTransit: true},
	CategoryBus:               {publicTransit: true},
	CategoryCablecar:          {publicTransit: true},
	CategoryLongDistanceTrain: {publicTransit: true},
	CategorySubway:            {publicTransit: true},
	CategoryTrain:             {publicTransit: true},
	CategoryTram:              {publicTransit: true},
	CategoryRegioTrain:        {publicTransit: true},
	CategoryEScooter:          {title: "E-Scooter"},
	CategoryTaxi:              {title: "Taxi"},
	CategoryBicycle:           {title: "Bicycle"},
	CategoryCarSharing:        {title: "Car sharing"},
}
