package catalog

import "github.com/shopspring/decimal"

// SeedProducts is the hardcoded showroom set served under FallbackSeed.
func SeedProducts() []Product {
	return []Product{
		seed("1", "Rustic Oak Dining Table", 899, "dining-tables",
			"Handcrafted rustic oak dining table with natural wood grain. Perfect for family gatherings.",
			[]string{"Solid oak construction", "Seats 6-8 people", "Natural wood finish"},
			"180cm W x 75cm H x 90cm D", 4.8, 124,
			"https://res.cloudinary.com/dzdkpm0od/image/upload/v1749797679/0670d0d4-084f-4c12-915d-a2d67552dafa_tvafri.jpg",
			"https://res.cloudinary.com/dzdkpm0od/image/upload/v1749797679/set_27_1__2_tvqjvd.jpg"),
		seed("11", "Ratten Chair", 129, "dining-chairs",
			"Classic Windsor style dining chair with spindle back design.",
			[]string{"Windsor style", "Spindle back", "Comfortable seating"},
			"45cm W x 85cm H x 50cm D", 4.7, 234,
			"https://res.cloudinary.com/dzdkpm0od/image/upload/v1749796346/closeup_set_131_v2_peter_natural_02_1_jeokuc.jpg"),
		seed("21", "Platform Bed Frame", 899, "beds",
			"Modern platform bed frame with low profile design.",
			[]string{"Platform design", "Low profile", "No box spring needed"},
			"180cm W x 35cm H x 200cm D", 4.8, 267,
			"https://images.pexels.com/photos/1743229/pexels-photo-1743229.jpeg?auto=compress&cs=tinysrgb&w=800"),
		seed("31", "Traditional Chest of Drawers", 459, "chest-drawers",
			"Classic chest of drawers with five spacious drawers.",
			[]string{"5 drawers", "Traditional style", "Ample storage"},
			"80cm W x 120cm H x 40cm D", 4.7, 189,
			"https://images.pexels.com/photos/1866149/pexels-photo-1866149.jpeg?auto=compress&cs=tinysrgb&w=800"),
		seed("41", "Rustic Coffee Table", 279, "coffee-tables",
			"Rustic coffee table with storage shelf and natural finish.",
			[]string{"Storage shelf", "Rustic design", "Natural finish"},
			"120cm W x 45cm H x 60cm D", 4.6, 234,
			"https://images.pexels.com/photos/1571463/pexels-photo-1571463.jpeg?auto=compress&cs=tinysrgb&w=800"),
		seed("51", "Display Cabinet", 659, "cabinets",
			"Elegant display cabinet with glass doors and LED lighting.",
			[]string{"Glass doors", "LED lighting", "Display shelves"},
			"120cm W x 200cm H x 35cm D", 4.8, 189,
			"https://images.pexels.com/photos/2177482/pexels-photo-2177482.jpeg?auto=compress&cs=tinysrgb&w=800"),
		seed("61", "Classic Bedside Table", 189, "bedside-tables",
			"Classic bedside table with drawer and open shelf.",
			[]string{"Drawer storage", "Open shelf", "Classic design"},
			"40cm W x 60cm H x 35cm D", 4.6, 234,
			"https://images.pexels.com/photos/1350789/pexels-photo-1350789.jpeg?auto=compress&cs=tinysrgb&w=800"),
		seed("71", "Chesterfield Sofa", 1299, "sofas",
			"Classic Chesterfield sofa with button tufting and rolled arms.",
			[]string{"Button tufting", "Rolled arms", "Classic design"},
			"220cm W x 85cm H x 90cm D", 4.9, 267,
			"https://images.pexels.com/photos/1866149/pexels-photo-1866149.jpeg?auto=compress&cs=tinysrgb&w=800"),
		seed("81", "Wooden Wall Art", 89, "decorations",
			"Handcrafted wooden wall art with geometric patterns.",
			[]string{"Handcrafted", "Geometric patterns", "Wall mounted"},
			"60cm W x 40cm H x 3cm D", 4.5, 89,
			DefaultImage),
	}
}

func seed(id, name string, price int64, category, desc string, features []string, dims string, rating float64, reviews int, images ...string) Product {
	return Product{
		ID:          id,
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Category:    category,
		Description: desc,
		Features:    features,
		Dimensions:  dims,
		Material:    DefaultMaterial,
		Images:      images,
		InStock:     true,
		Rating:      rating,
		Reviews:     reviews,
	}
}
