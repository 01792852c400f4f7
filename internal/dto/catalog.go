package dto

import "github.com/Additional-Code/orderpad/internal/catalog"

// CustomerResponse represents a catalog customer.
type CustomerResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// ProductResponse represents a catalog product.
type ProductResponse struct {
	Barcode   string  `json:"barcode"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Unit      string  `json:"unit"`
}

// CatalogStatusResponse reports how fresh the in-memory catalog is.
type CatalogStatusResponse struct {
	CustomersSettled bool `json:"customers_settled"`
	ProductsSettled  bool `json:"products_settled"`
	Degraded         bool `json:"degraded"`
}

// NewCustomerResponses maps catalog customers onto their transport shape.
func NewCustomerResponses(customers []catalog.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, CustomerResponse{Code: c.Code, Name: c.Name, Phone: c.Phone, Address: c.Address})
	}
	return out
}

// NewProductResponses maps catalog products onto their transport shape.
func NewProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResponse{Barcode: p.Barcode, Name: p.Name, UnitPrice: p.UnitPrice, Unit: string(p.Unit)})
	}
	return out
}

// NewCatalogStatusResponse maps loader status onto its transport shape.
func NewCatalogStatusResponse(status catalog.Status) CatalogStatusResponse {
	return CatalogStatusResponse{
		CustomersSettled: status.CustomersSettled,
		ProductsSettled:  status.ProductsSettled,
		Degraded:         status.Degraded,
	}
}
