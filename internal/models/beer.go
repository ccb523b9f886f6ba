package models

// Beer is a stock catalog entry. The validate tags are the canonical input
// contract for stock forms.
type Beer struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" validate:"required,min=1,max=20"`
	Price    float64 `json:"price" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gte=0"`
}

// NewBeer is a Beer without its server-assigned id, the body of POST /stock.
type NewBeer struct {
	Name     string  `json:"name" validate:"required,min=1,max=20"`
	Price    float64 `json:"price" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gte=0"`
}

// WithID attaches an id, producing the body of PUT /stock/{id}.
func (b NewBeer) WithID(id string) Beer {
	return Beer{ID: id, Name: b.Name, Price: b.Price, Quantity: b.Quantity}
}

// Stock is the body of GET /stock.
type Stock struct {
	Beers []Beer `json:"beers"`
}

// Find returns the beer with the given id.
func (s *Stock) Find(id string) (Beer, bool) {
	for _, b := range s.Beers {
		if b.ID == id {
			return b, true
		}
	}
	return Beer{}, false
}
