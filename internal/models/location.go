package models

// City is a city within a country. Slugs are unique within their country.
type City struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Slug string `yaml:"slug" json:"slug"`
}

// Country is a top-level browse scope.
type Country struct {
	ID     int    `yaml:"id" json:"id"`
	Code   string `yaml:"code" json:"code"` // ISO 3166-1 alpha-2
	Name   string `yaml:"name" json:"name"`
	Slug   string `yaml:"slug" json:"slug"`
	Cities []City `yaml:"cities" json:"cities"`
}

// Clone returns a copy of the country that shares no slices with c.
func (c Country) Clone() Country {
	out := c
	out.Cities = append([]City(nil), c.Cities...)
	return out
}
