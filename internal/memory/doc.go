// Package memory provides an in-process linear memory and allocator that
// behave like a guest module's memory and malloc/free exports.
package memory
