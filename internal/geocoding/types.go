package geocoding

// Candidate is one normalized geocoder result.
type Candidate struct {
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	HouseNumber string  `json:"houseNumber,omitempty"`
	Street      string  `json:"street,omitempty"`
	PostCode    string  `json:"postCode,omitempty"`
	City        string  `json:"city,omitempty"`
	Context     string  `json:"context,omitempty"`
}

// featureCollection mirrors the relevant parts of the GeoJSON payload returned
// by the address API.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		// Wire order is [longitude, latitude].
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Label       string  `json:"label"`
		Score       float64 `json:"score"`
		HouseNumber string  `json:"housenumber"`
		Street      string  `json:"street"`
		Name        string  `json:"name"`
		PostCode    string  `json:"postcode"`
		City        string  `json:"city"`
		Context     string  `json:"context"`
	} `json:"properties"`
}

func (f feature) toCandidate() (Candidate, bool) {
	if f.Properties.Label == "" || len(f.Geometry.Coordinates) < 2 {
		return Candidate{}, false
	}

	street := f.Properties.Street
	if street == "" {
		street = f.Properties.Name
	}

	return Candidate{
		Label:       f.Properties.Label,
		Score:       f.Properties.Score,
		// Swap from wire order to lat/lng.
		Lat:         f.Geometry.Coordinates[1],
		Lng:         f.Geometry.Coordinates[0],
		HouseNumber: f.Properties.HouseNumber,
		Street:      street,
		PostCode:    f.Properties.PostCode,
		City:        f.Properties.City,
		Context:     f.Properties.Context,
	}, true
}
