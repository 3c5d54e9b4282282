// Package source provides incident sources for the repository store: a
// directory of GeoJSON files, a PostGIS table, and a fixed in-memory map.
package source
