package catalog

import "github.com/utafrali/storefront/internal/domain"

func sampleCatalog() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Cotton Casual Shirt", Brand: "ZARA", Description: "A comfortable cotton casual shirt perfect for everyday wear.",
			Price: 1299, OriginalPrice: domain.Ptr[int64](1899), Discount: domain.Ptr(32), Rating: 4.2, ReviewCount: 1204,
			Category: "Men", Subcategory: domain.Ptr("Shirts"), InStock: true, IsNew: domain.Ptr(true)},
		{ID: "2", Name: "Floral Summer Dress", Brand: "H&M", Description: "Light and breezy floral dress for summer days.",
			Price: 2199, OriginalPrice: domain.Ptr[int64](2999), Discount: domain.Ptr(27), Rating: 4.5, ReviewCount: 856,
			Category: "Women", InStock: true, IsBestseller: domain.Ptr(true)},
		{ID: "3", Name: "Kids Rainbow T-Shirt", Brand: "GAP Kids", Description: "Colorful rainbow t-shirt for kids.",
			Price: 899, Discount: domain.Ptr(31), Rating: 4.7, ReviewCount: 432,
			Category: "Kids", InStock: true, IsNew: domain.Ptr(true)},
		{ID: "4", Name: "Leather Formal Shoes", Brand: "Clarks", Description: "Premium leather shoes for formal occasions.",
			Price: 4999, Discount: domain.Ptr(29), Rating: 4.3, ReviewCount: 298,
			Category: "Men", InStock: true},
		{ID: "5", Name: "Designer Handbag", Brand: "Michael Kors", Description: "Elegant designer handbag.",
			Price: 8999, Discount: domain.Ptr(31), Rating: 4.6, ReviewCount: 672,
			Category: "Women", InStock: true, IsBestseller: domain.Ptr(true)},
		{ID: "6", Name: "Sports Sneakers", Brand: "Nike", Description: "Comfortable sneakers for running and training.",
			Price: 3499, Discount: domain.Ptr(30), Rating: 4.4, ReviewCount: 1890,
			Category: "Sports", InStock: true, IsNew: domain.Ptr(true)},
		{ID: "7", Name: "Denim Jacket", Brand: "Levis", Description: "Classic denim jacket.",
			Price: 2899, Discount: domain.Ptr(28), Rating: 4.1, ReviewCount: 543,
			Category: "Men", InStock: true},
		{ID: "8", Name: "Silk Scarf", Brand: "Hermès", Description: "Luxurious silk scarf.",
			Price: 15999, Rating: 4.8, ReviewCount: 234,
			Category: "Women", InStock: true, IsBestseller: domain.Ptr(true)},
	}
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}
