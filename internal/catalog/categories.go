package catalog

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Categories lists the storefront's category codes with their display names.
var Categories = []Category{
	{ID: "vegetables", Name: "Rau củ"},
	{ID: "meat", Name: "Thịt cá"},
	{ID: "dairy", Name: "Sữa"},
	{ID: "eggs", Name: "Trứng"},
	{ID: "dry", Name: "Đồ khô"},
}

const allCategories = "all"
