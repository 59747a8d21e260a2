package models

// Tag is reference data, rarely mutated after fixture load.
type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `gorm:"size:200;not null" json:"name"`
	Color string `gorm:"size:7;not null" json:"color"`
	Slug  string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
}

// Ingredient is reference data loaded from fixtures. The (name, unit) pair is
// unique so fixture reloads stay idempotent.
type Ingredient struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"size:200;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:100;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}
