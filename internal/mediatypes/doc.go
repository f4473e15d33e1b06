// Package mediatypes defines the image formats the viewer understands and the
// helpers used to recognise them.
//
// Two checks exist and they answer different questions. IsImageExtension is a
// cheap filename test used to drop irrelevant filesystem events before any
// I/O happens:
//
//	if !mediatypes.IsImageExtension(event.Path) {
//	    return
//	}
//
// Sniff opens the file and inspects its leading bytes, so a JPEG saved under
// a .png name is still reported as FormatJPEG:
//
//	format, err := mediatypes.Sniff(absPath)
//	if err != nil {
//	    // unreadable, leave index state alone
//	}
//	if format == mediatypes.FormatUnknown {
//	    // not an image
//	}
//
// Use GetMimeType for Content-Type headers.
package mediatypes
