// Package media reads information out of image files on demand.
//
// ExtractMetadata parses the text chunks of a PNG, which is where generation
// tools store their prompt and sampler settings. GetImageDimensions decodes
// only the image header. Neither function is called while indexing.
package media
