package model

// Product is a catalog entry joined into order items for display.
type Product struct {
	ID       string
	Name     string
	Price    float64
	Image    string
	Category string
}
