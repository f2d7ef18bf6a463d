// Package gotlm is a segment translation memory for structured CMS content.
//
// Content trees (plain text, rich text, stream fields, child relations and
// related objects) are walked into a flat list of path-addressed segments,
// stored in a deduplicated translation memory, translated manually, by a
// machine translation provider or through PO files, and reassembled into
// translated content trees.
//
// Basic usage:
//
//	import (
//	    "github.com/ZaguanLabs/gotlm/content"
//	    "github.com/ZaguanLabs/gotlm/extract"
//	    "github.com/ZaguanLabs/gotlm/ingest"
//	)
//
//	func main() {
//	    schema, _ := content.LoadSchema("schema.yaml")
//	    page, _ := schema.DecodeObject(data)
//
//	    // Extract segments
//	    segments, err := extract.Segments(page)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // ... translate segments ...
//
//	    // Rebuild a French copy
//	    target := page.CopyForLocale("fr")
//	    err = ingest.New(resolver).Ingest(page, target, "en", "fr", segments)
//	}
package gotlm
