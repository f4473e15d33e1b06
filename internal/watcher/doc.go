// Package watcher delivers filesystem changes under a directory tree as
// debounced batches.
//
// A Watcher registers every non-hidden directory with fsnotify and keeps
// registering new ones as they are created. Raw events pass through a
// Debouncer that collapses repeated events for a path, so a file written in
// several chunks produces a single event once writing settles:
//
//	w, err := watcher.New(root, watcher.Options{Debounce: 100 * time.Millisecond})
//	if err != nil {
//	    return err
//	}
//	go w.Start()
//	defer w.Close()
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Path is absolute, ev.Op is OpCreate, OpWrite, OpRemove or OpRename
//	    }
//	}
//
// Close may be called from any goroutine, any number of times. After Close
// the Events channel is closed and no further batches are delivered.
package watcher
