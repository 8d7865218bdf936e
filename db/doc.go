// Package db is the key-value store facade over a copy-on-write binary
// search tree kept in a single append-only file.
//
// Reads see the latest committed tree unless the handle has uncommitted
// writes, in which case they see those. The first write after a commit
// takes the file's exclusive lock and rebases on the latest committed
// tree; the lock is held until Commit or Close.
//
//	d, err := db.Open("example.db")
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	if err := d.Set("greeting", []byte("hello")); err != nil {
//		return err
//	}
//	if err := d.Commit(); err != nil {
//		return err
//	}
package db
