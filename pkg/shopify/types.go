package shopify

// RemoteProduct is the Admin REST product resource, limited to the fields the
// sync engine consumes. ID and Title are required on import; everything else
// is optional with engine-side fallbacks.
type RemoteProduct struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	BodyHTML    string          `json:"body_html,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	ProductType string          `json:"product_type,omitempty"`
	Status      string          `json:"status,omitempty"`
	Variants    []RemoteVariant `json:"variants,omitempty"`
	Images      []RemoteImage   `json:"images,omitempty"`
}

// RemoteVariant is the Admin REST variant resource.
type RemoteVariant struct {
	ID                int64    `json:"id"`
	ProductID         int64    `json:"product_id,omitempty"`
	SKU               string   `json:"sku,omitempty"`
	Title             string   `json:"title,omitempty"`
	Price             string   `json:"price,omitempty"`
	Option1           string   `json:"option1,omitempty"`
	Option2           string   `json:"option2,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	WeightUnit        string   `json:"weight_unit,omitempty"`
	InventoryItemID   int64    `json:"inventory_item_id,omitempty"`
	InventoryQuantity *int     `json:"inventory_quantity,omitempty"`
}

// RemoteImage is a product image reference.
type RemoteImage struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src,omitempty"`
}

// ProductPayload is the outbound shape for product create/update calls.
type ProductPayload struct {
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html,omitempty"`
	Vendor      string           `json:"vendor,omitempty"`
	ProductType string           `json:"product_type,omitempty"`
	Status      string           `json:"status,omitempty"`
	Variants    []VariantPayload `json:"variants,omitempty"`
	Images      []RemoteImage    `json:"images,omitempty"`
}

// VariantPayload is the outbound shape for variant create/update calls.
type VariantPayload struct {
	ID                *int64   `json:"id,omitempty"`
	SKU               string   `json:"sku,omitempty"`
	Title             string   `json:"title,omitempty"`
	Price             string   `json:"price,omitempty"`
	Option1           string   `json:"option1,omitempty"`
	Option2           string   `json:"option2,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	WeightUnit        string   `json:"weight_unit,omitempty"`
	InventoryQuantity *int     `json:"inventory_quantity,omitempty"`
}

// InventoryLevel mirrors the inventory_levels resource for one location.
type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       *int  `json:"available"`
}

// RemoteInventory is the normalized stock view returned to the engine.
type RemoteInventory struct {
	Quantity  int
	Available int
	Reserved  int
}

// Location is an Admin REST location.
type Location struct {
	ID     int64  `json:"id"`
	Name   string `json:"name,omitempty"`
	Active bool   `json:"active"`
}

type productEnvelope struct {
	Product RemoteProduct `json:"product"`
}

type productsEnvelope struct {
	Products []RemoteProduct `json:"products"`
}

type variantEnvelope struct {
	Variant RemoteVariant `json:"variant"`
}

type inventoryLevelsEnvelope struct {
	InventoryLevels []InventoryLevel `json:"inventory_levels"`
}

type inventoryLevelEnvelope struct {
	InventoryLevel InventoryLevel `json:"inventory_level"`
}

type locationsEnvelope struct {
	Locations []Location `json:"locations"`
}

type productRequest struct {
	Product ProductPayload `json:"product"`
}

type setInventoryRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

type apiErrorBody struct {
	Errors any `json:"errors"`
}
