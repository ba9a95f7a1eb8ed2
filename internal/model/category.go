package model

import "time"

// IconKey names the icon asset a category is rendered with.
type IconKey string

// Known icon keys. Presentation layers map these to assets; the core only stores them.
const (
	IconCart         IconKey = "cart"
	IconUtensils     IconKey = "utensils"
	IconCoffee       IconKey = "coffee"
	IconCar          IconKey = "car"
	IconHome         IconKey = "home"
	IconHeart        IconKey = "heart"
	IconShirt        IconKey = "shirt"
	IconFilm         IconKey = "film"
	IconPlug         IconKey = "plug"
	IconRepeat       IconKey = "repeat"
	IconGift         IconKey = "gift"
	IconPlane        IconKey = "plane"
	IconBook         IconKey = "book"
	IconPaw          IconKey = "paw"
	IconTag          IconKey = "tag"
	IconQuestionMark IconKey = "question"
)

var iconKeys = map[IconKey]struct{}{
	IconCart: {}, IconUtensils: {}, IconCoffee: {}, IconCar: {}, IconHome: {},
	IconHeart: {}, IconShirt: {}, IconFilm: {}, IconPlug: {}, IconRepeat: {},
	IconGift: {}, IconPlane: {}, IconBook: {}, IconPaw: {}, IconTag: {},
	IconQuestionMark: {},
}

// Valid reports whether the key is one of the known icon keys.
func (k IconKey) Valid() bool {
	_, ok := iconKeys[k]
	return ok
}

// Category is a named spending bucket.
type Category struct {
	CreatedAt time.Time
	ParentID  *string // stored only, no hierarchy semantics yet
	ID        string
	Slug      string
	Name      string
	Icon      IconKey
	IsSystem  bool
}

// CategoryIndex returns a lookup of categories keyed by ID.
func CategoryIndex(categories []Category) map[string]Category {
	idx := make(map[string]Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}
