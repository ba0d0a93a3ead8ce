package resources

import "fmt"

// Siren-style hypermedia envelopes: an entity exposes its properties and a
// self link, a collection exposes a count, per-item entities and page
// navigation links.

type sirenLink struct {
	Rel  []string `json:"rel"`
	Href string   `json:"href"`
}

type sirenEntity struct {
	Properties any         `json:"properties"`
	Links      []sirenLink `json:"links,omitempty"`
}

type sirenCollection struct {
	Properties map[string]any `json:"properties"`
	Entities   []sirenEntity  `json:"entities"`
	Links      []sirenLink    `json:"links,omitempty"`
}

// SirenEntity wraps a single item.
func SirenEntity(props Row, path string, id int64) sirenEntity {
	return sirenEntity{
		Properties: props,
		Links: []sirenLink{
			{Rel: []string{"self"}, Href: fmt.Sprintf("%s/%d", path, id)},
		},
	}
}

// sirenItemEntity wraps a collection member without links of its own.
func sirenItemEntity(props Row) sirenEntity {
	return sirenEntity{Properties: props}
}

// SirenCollection wraps a page of items with navigation links.
func SirenCollection(items []Row, path string, page, lastPage int) sirenCollection {
	collection := sirenCollection{
		Properties: map[string]any{"count": len(items)},
		Entities:   make([]sirenEntity, 0, len(items)),
	}
	for _, item := range items {
		collection.Entities = append(collection.Entities, sirenItemEntity(item))
	}
	collection.Links = []sirenLink{
		{Rel: []string{"self"}, Href: fmt.Sprintf("%s?page=%d", path, page)},
	}
	if page > 1 {
		collection.Links = append(collection.Links,
			sirenLink{Rel: []string{"previous"}, Href: fmt.Sprintf("%s?page=%d", path, page-1)})
	}
	if page != lastPage {
		collection.Links = append(collection.Links,
			sirenLink{Rel: []string{"next"}, Href: fmt.Sprintf("%s?page=%d", path, page+1)})
	}
	return collection
}
