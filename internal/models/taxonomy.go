package models

// Category is one entry of the fixed category tree articles are filed under.
type Category struct {
	Slug string `bson:"_id" json:"slug"`
	Name string `bson:"name" json:"name"`
}

// Tag is a free-form label articles can carry, up to ArticleMaxTags each.
// Unknown tag slugs supplied by clients are dropped, not rejected.
type Tag struct {
	Slug string `bson:"_id" json:"slug"`
	Name string `bson:"name" json:"name"`
}

// DefaultCategories seeds the categories collection when it is empty.
var DefaultCategories = []Category{
	{Slug: "electronics", Name: "Electronics"},
	{Slug: "home", Name: "Home & Garden"},
	{Slug: "fashion", Name: "Fashion"},
	{Slug: "sports", Name: "Sports & Leisure"},
	{Slug: "motor", Name: "Motor"},
	{Slug: "books", Name: "Books, Movies & Music"},
	{Slug: "toys", Name: "Toys & Games"},
	{Slug: "other", Name: "Other"},
}

// DefaultTags seeds the tags collection when it is empty.
var DefaultTags = []Tag{
	{Slug: "vintage", Name: "Vintage"},
	{Slug: "handmade", Name: "Handmade"},
	{Slug: "barely-used", Name: "Barely used"},
	{Slug: "collector", Name: "Collector"},
	{Slug: "bargain", Name: "Bargain"},
	{Slug: "urgent", Name: "Urgent sale"},
	{Slug: "negotiable", Name: "Price negotiable"},
	{Slug: "boxed", Name: "Original box"},
}
