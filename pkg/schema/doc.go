// Package schema models the declarative settings page description: an ordered
// tree of headings, text blocks, sections, input fields and a submit action.
// A Schema is built once (from Go values via New or from a descriptor file via
// Parse/LoadFile), checked for authoring mistakes such as duplicate message
// keys or inverted bounds, and is read-only afterwards. Input-bearing nodes
// implement Field and are reachable through AllFields, a preorder traversal
// that flattens sections.
package schema
