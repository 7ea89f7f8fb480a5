// Package formats reads and writes the GXLib binary asset formats.
//
// GXMD holds a complete model: unified vertex and index buffers, sub-mesh
// chunks, materials with 256-byte shader parameter blocks, an optional
// skeleton and embedded animations. GXAN holds one standalone animation
// clip whose channels address bones by name. Both formats are little-endian,
// start with a fixed header listing each section's offset and size, and
// share a deduplicated string table (see StringTableBuilder).
//
// Loaders copy everything they need out of the input slice; a returned
// Model or Animation never aliases the caller's bytes.
package formats
