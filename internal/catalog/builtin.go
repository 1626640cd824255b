package catalog

import "focusroom/internal/core"

// Builtin returns the minimal rules used when no catalog directory is available
func Builtin() core.Catalog {
	return core.Catalog{
		{
			ID:       core.CategorySocial,
			Domains:  []string{"facebook.com", "instagram.com", "twitter.com", "x.com"},
			Keywords: []string{"facebook", "instagram", "twitter"},
			Loaded:   true,
		},
		{
			ID:       core.CategoryShopping,
			Domains:  []string{"amazon.com", "flipkart.com", "ebay.com"},
			Keywords: []string{"amazon", "shop", "buy"},
			Loaded:   true,
		},
		{
			ID:       core.CategoryNews,
			Domains:  []string{"cnn.com", "bbc.com", "nytimes.com"},
			Keywords: []string{"news", "cnn", "bbc"},
			Loaded:   true,
		},
		{
			ID:       core.CategoryEntertainment,
			Domains:  []string{"youtube.com", "netflix.com", "spotify.com"},
			Keywords: []string{"youtube", "netflix", "spotify"},
			Loaded:   true,
		},
		{
			ID:       core.CategoryAdult,
			Keywords: []string{"porn", "xxx", "adult"},
			Loaded:   true,
		},
	}
}
