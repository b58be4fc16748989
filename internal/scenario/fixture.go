package scenario

// Credentials are sent to /register and /login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Product is the payload of the add-product request.
type Product struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	SKU         string  `json:"sku"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// ListOptions are optional pagination query parameters for the listing step.
// Zero values are not sent.
type ListOptions struct {
	Page  int
	Limit int
}

// Fixture holds every value the scenario sends.
type Fixture struct {
	Credentials    Credentials
	Product        Product
	UpdateQuantity int
	// UniqueSKU suffixes the SKU with the run id so repeated runs do not
	// collide on the service's SKU uniqueness constraint.
	UniqueSKU bool
	List      ListOptions
}

// DefaultFixture returns the stock credentials and product.
func DefaultFixture() Fixture {
	return Fixture{
		Credentials: Credentials{Username: "puja", Password: "mypassword"},
		Product: Product{
			Name:        "Phone",
			Type:        "Electronics",
			SKU:         "PHN-001",
			ImageURL:    "https://example.com/phone.jpg",
			Description: "Latest Phone",
			Quantity:    5,
			Price:       999.99,
		},
		UpdateQuantity: 15,
	}
}

// productFor returns the product payload for one run.
func (f Fixture) productFor(runID string) Product {
	p := f.Product
	if f.UniqueSKU && runID != "" {
		suffix := runID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		p.SKU = p.SKU + "-" + suffix
	}
	return p
}
