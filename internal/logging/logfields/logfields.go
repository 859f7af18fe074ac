// Package logfields defines common logging fields which are used across packages
package logfields

const (
	// LogSubsys is the field denoting the subsystem when logging
	LogSubsys = "subsys"

	// Document is the name of the document being preprocessed
	Document = "document"

	// Line is a line number inside the current document
	Line = "line"

	// Macro is the name of a macro
	Macro = "macro"

	// Kind is the kind of a macro (define, assign, load, ...)
	Kind = "kind"

	// Path is a file system path
	Path = "path"

	// Depth is the current nesting depth of macro expansion
	Depth = "depth"

	// Keyword is a keyword from the configuration
	Keyword = "keyword"
)
