package db

import "github.com/a-poor/cowdb/storage"

// Stats describes a store as seen by one handle.
type Stats struct {
	Session    string          `json:"session"`
	Path       string          `json:"path"`
	Len        uint64          `json:"len"`
	Depth      int             `json:"depth"`
	Root       storage.Address `json:"root"`
	FileSize   int64           `json:"fileSize"`
	Locked     bool            `json:"locked"`
	Compressed bool            `json:"compressed"`
}

// Stats gathers store statistics. Depth loads the whole tree.
func (db *DB) Stats() (Stats, error) {
	db.Lock()
	defer db.Unlock()

	if err := db.beginRead(); err != nil {
		return Stats{}, err
	}
	n, err := db.tree.Len(db.root)
	if err != nil {
		return Stats{}, err
	}
	depth, err := db.tree.Depth(db.root)
	if err != nil {
		return Stats{}, err
	}
	size, err := db.store.Size()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Session:    db.session,
		Path:       db.store.Path(),
		Len:        n,
		Depth:      depth,
		Root:       db.root.Address(),
		FileSize:   size,
		Locked:     db.store.Locked(),
		Compressed: db.opts.Compress,
	}, nil
}
