// Package loader registers store drivers via blank imports.
// Import this package to ensure the default drivers are available.
//
// Usage in main.go:
//
//	import _ "github.com/anved/listkeeper/internal/store/loader"
package loader

import (
	// Register the in-memory driver
	_ "github.com/anved/listkeeper/internal/store/memory"

	// Register the sqlite driver
	_ "github.com/anved/listkeeper/internal/store/sqlite"
)
