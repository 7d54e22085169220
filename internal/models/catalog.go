package models

import "fmt"

type Service struct {
	ID         int64  `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	PriceCents int64  `yaml:"price_cents" json:"price_cents"`
	SortOrder  int64  `yaml:"sort_order" json:"sort_order"`
}

// FormatPrice renders the price the way the price list shows it: "R$ 18,00".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}

func (s Service) FormatPrice() string {
	return FormatPrice(s.PriceCents)
}

type Barber struct {
	ID       int64  `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	ImageURL string `yaml:"image_url" json:"image_url,omitempty"`
}

type Location struct {
	ID      int64  `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
}

// Catalog is the immutable reference data clients pick from. It is loaded
// once at startup and only ever read afterwards.
type Catalog struct {
	Services  []Service  `yaml:"services" json:"services"`
	Barbers   []Barber   `yaml:"barbers" json:"barbers"`
	Locations []Location `yaml:"locations" json:"locations"`
}

func (c *Catalog) ServiceByID(id int64) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

func (c *Catalog) BarberByID(id int64) (Barber, bool) {
	for _, b := range c.Barbers {
		if b.ID == id {
			return b, true
		}
	}
	return Barber{}, false
}

func (c *Catalog) LocationByID(id int64) (Location, bool) {
	for _, l := range c.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}
