// Package storage persists thread reconstruction results.
//
// Each run is written as <output directory>/<run_id>.json. Writes go to a
// temporary file that is renamed into place, so readers never observe a
// partially written result. The Manager keeps an in-memory index of the
// run IDs on disk, seeded by scanning the directory at construction.
//
// Usage:
//
//	manager, err := storage.NewManager(cfg.Output.Directory)
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SaveResult(result)
package storage
