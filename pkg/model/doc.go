// Package model fills structs from loosely typed input and exposes them back
// as maps for serialization.
//
// Fill decodes a map (form values, decoded JSON, query parameters) into a
// struct, converting types weakly and applying the casts named in each
// field's `cast` tag:
//
//	type Post struct {
//	    model.Model
//	    Title string   `model:"title" cast:"trim"`
//	    Body  string   `model:"body" cast:"html"`
//	    Tags  []string `model:"tags"`
//	    Token string   `model:"token,hidden"`
//	}
//
//	var p Post
//	err := model.Fill(&p, map[string]any{"title": " Hi ", "tags": "a,b"})
//
// Expose and ToJSON return the visible fields, Changes lists the fields that
// differ between two snapshots, and Cast converts single values.
//
// Built-in casts: int, float, bool, string, time, duration, json, html,
// title, lower, upper, trim. RegisterCast adds more.
package model
