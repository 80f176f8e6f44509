package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Apple":                  "apple",
		"Galaxy S21 Ultra":       "galaxy-s21-ultra",
		"  iPhone 15 Pro Max ":   "iphone-15-pro-max",
		"Huawei P30 Lite (2019)": "huawei-p30-lite-2019",
		"Motorola Édge 40":       "motorola-edge-40",
		"OnePlus 9+":             "oneplus-9plus",
		"---":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
