package catalog

const (
	LocationHanoi = "Hà Nội"
	LocationHCMC  = "TP. HCM"
)

func stockAt(hanoi, hcmc int) []StockRecord {
	return []StockRecord{
		{Location: LocationHanoi, Quantity: hanoi},
		{Location: LocationHCMC, Quantity: hcmc},
	}
}

// DemoProducts is the catalog seeded on first start.
var DemoProducts = []Product{
	{ID: "vf9", Name: "VinFast VF 9", BasePrice: 1499000000,
		Description: "E-segment electric SUV, 7 seats. VinFast flagship.",
		ImageURL:    "https://giaxeoto.vn/admin/upload/images/resize/640-gia-xe-Vinfast-VF9.jpg",
		Locations:   stockAt(5, 10)},
	{ID: "vf8", Name: "VinFast VF 8", BasePrice: 1057000000,
		Description: "D-segment electric SUV, 5 seats.",
		ImageURL:    "https://danchoioto.vn/wp-content/uploads/2022/08/gia-xe-vinfast-vf8.jpg",
		Locations:   stockAt(15, 30)},
	{ID: "vf7", Name: "VinFast VF 7", BasePrice: 850000000,
		Description: "C-segment electric SUV with coupe styling.",
		ImageURL:    "https://giaxeoto.vn/admin/upload/images/resize/640-Vinfast-VF7-gia-xe.jpg",
		Locations:   stockAt(20, 25)},
	{ID: "vf6", Name: "VinFast VF 6", BasePrice: 675000000,
		Description: "B-segment electric SUV, compact.",
		ImageURL:    "https://giaxeoto.vn/admin/upload/images/resize/640-Vinfast-VF6-ban-thuong-mai-gia-xe.jpg",
		Locations:   stockAt(30, 20)},
	{ID: "vf5-plus", Name: "VinFast VF 5 Plus", BasePrice: 458000000,
		Description: "A-segment electric SUV for the city.",
		ImageURL:    "https://giaxeoto.vn/admin/upload/images/resize/640-Vinfast-VF5-plus-gia-xe.jpg",
		Locations:   stockAt(40, 50)},
	{ID: "lux-a20", Name: "VinFast LUX A2.0", BasePrice: 1115000000,
		Description: "E-segment sedan, 2.0L turbo petrol.",
		ImageURL:    "https://vinfastdongsaigon.com/content/VINFAST/san-pham/lux-a20.jpg",
		Locations:   stockAt(10, 5)},
	{ID: "lux-sa20", Name: "VinFast LUX SA2.0", BasePrice: 1550000000,
		Description: "E-segment SUV, 2.0L turbo petrol.",
		ImageURL:    "https://danchoioto.vn/wp-content/uploads/2020/09/vinfast-lux-sa2-0.jpg",
		Locations:   stockAt(10, 5)},
	{ID: "fadil", Name: "VinFast Fadil", BasePrice: 425000000,
		Description: "A-segment hatchback, 1.4L petrol.",
		ImageURL:    "https://autopro8.mediacdn.vn/134505113543774208/2023/1/29/vinfast-fadil-23-16434695001991234174472-16749685067641882387245-1674974414975-16749744151041515512318.jpg",
		Locations:   stockAt(20, 15)},
}
